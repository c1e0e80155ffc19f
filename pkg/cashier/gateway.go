package cashier

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Payload is a request body sent to the gateway.
type Payload map[string]any

// Clone returns a shallow copy so callers can add keys without touching
// the original.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Has reports whether key is present.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Response is the envelope every gateway endpoint answers with.
// A transport failure is returned as an error, a business failure as a
// Response with Status false.
type Response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals Data into v. Empty or null data leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 || bytes.Equal(r.Data, []byte("null")) {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Gateway is the payment provider port. Implementations perform one HTTP
// call per method and keep no local state.
type Gateway interface {
	CreateCustomer(ctx context.Context, p Payload) (*Response, error)
	FetchCustomer(ctx context.Context, code string) (*Response, error)

	CreateSubscription(ctx context.Context, p Payload) (*Response, error)
	EnableSubscription(ctx context.Context, p Payload) (*Response, error)
	DisableSubscription(ctx context.Context, p Payload) (*Response, error)
	ListCustomerSubscriptions(ctx context.Context, customerID string) (*Response, error)

	Charge(ctx context.Context, p Payload) (*Response, error)
	ChargeAuthorization(ctx context.Context, p Payload) (*Response, error)
	MakePaymentRequest(ctx context.Context, p Payload) (*Response, error)
	Refund(ctx context.Context, p Payload) (*Response, error)
	CheckAuthorization(ctx context.Context, p Payload) (*Response, error)
	DeactivateAuthorization(ctx context.Context, p Payload) (*Response, error)

	CreateInvoice(ctx context.Context, p Payload) (*Response, error)
	FetchInvoices(ctx context.Context, params Payload) (*Response, error)
	FindInvoice(ctx context.Context, id string) (*Response, error)
}

// GatewayID is an identifier assigned by the gateway. The gateway sends
// ids as JSON numbers in some payloads and as strings in others.
type GatewayID string

func (id *GatewayID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = GatewayID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = GatewayID(n.String())
	return nil
}

func (id GatewayID) String() string { return string(id) }

// Plan is the plan block embedded in subscription payloads.
type Plan struct {
	PlanCode string `json:"plan_code"`
	Name     string `json:"name"`
}

// GatewayCustomer is the customer object returned by the gateway.
type GatewayCustomer struct {
	ID             GatewayID       `json:"id"`
	CustomerCode   string          `json:"customer_code"`
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Phone          string          `json:"phone"`
	Authorizations []Authorization `json:"authorizations"`
}

// Authorization is a reusable payment method stored by the gateway.
type Authorization struct {
	AuthorizationCode string `json:"authorization_code"`
	CardType          string `json:"card_type"`
	Last4             string `json:"last4"`
	ExpMonth          string `json:"exp_month"`
	ExpYear           string `json:"exp_year"`
	Bank              string `json:"bank"`
	Brand             string `json:"brand"`
	Channel           string `json:"channel"`
	Reusable          bool   `json:"reusable"`
	Signature         string `json:"signature"`
}

// RemoteSubscription is a subscription as the gateway reports it.
type RemoteSubscription struct {
	ID               GatewayID        `json:"id"`
	SubscriptionCode string           `json:"subscription_code"`
	EmailToken       string           `json:"email_token"`
	NextPaymentDate  *time.Time       `json:"next_payment_date"`
	Status           string           `json:"status"`
	Plan             *Plan            `json:"plan,omitempty"`
	Customer         *GatewayCustomer `json:"customer,omitempty"`
}
