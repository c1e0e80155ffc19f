package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/cashier/pkg/cashier"
)

// Paystack event names with a built-in handler.
const (
	EventSubscriptionCreate   = "subscription.create"
	EventChargeSuccess        = "charge.success"
	EventSubscriptionNotRenew = "subscription.not_renew"
	EventSubscriptionDisable  = "subscription.disable"
)

// Event is a verified, parsed webhook delivery.
type Event struct {
	Name string
	Data json.RawMessage
	// Raw is the request body exactly as signed.
	Raw []byte
}

// ParseEvent decodes a webhook body. The body must be a JSON object with
// a non-empty string "event" member.
func ParseEvent(body []byte) (Event, error) {
	var envelope struct {
		Event *string         `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Event{}, errors.Join(cashier.ErrMalformedWebhookPayload, err)
	}
	if envelope.Event == nil || *envelope.Event == "" {
		return Event{}, errors.Join(cashier.ErrMalformedWebhookPayload, errors.New("event is missing"))
	}
	return Event{Name: *envelope.Event, Data: envelope.Data, Raw: body}, nil
}

// Decode unmarshals the event data into v. Absent or null data is
// reported as ErrMalformedWebhookPayload.
func (e Event) Decode(v any) error {
	data := bytes.TrimSpace(e.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errors.Join(cashier.ErrMalformedWebhookPayload, errors.New("data is missing"))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Join(cashier.ErrMalformedWebhookPayload, err)
	}
	return nil
}

// Result is the HTTP answer to a delivery.
type Result struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

// OK reports whether the provider will consider the delivery acknowledged.
func (r Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func ok(msg string) Result         { return Result{Status: http.StatusOK, Message: msg} }
func badRequest(msg string) Result { return Result{Status: http.StatusBadRequest, Message: msg} }
func notFound(msg string) Result   { return Result{Status: http.StatusNotFound, Message: msg} }

var (
	resultForbidden   = Result{Status: http.StatusForbidden, Message: "Forbidden"}
	resultInvalid     = badRequest("Invalid payload")
	resultUnhandled   = ok("Unhandled webhook event")
	resultFailed      = Result{Status: http.StatusInternalServerError, Message: "Webhook processing failed"}
	resultBusy        = Result{Status: http.StatusServiceUnavailable, Message: "Webhook is being processed"}
	resultTooLarge    = Result{Status: http.StatusRequestEntityTooLarge, Message: "Payload too large"}
	resultWrongMethod = Result{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"}
)

// Handler reconciles one event type. A non-nil error is logged and
// answered with 500 so the provider redelivers.
type Handler func(ctx context.Context, evt Event) (Result, error)
