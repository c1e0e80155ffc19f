package cashier

import (
	"errors"
	"fmt"
)

var (
	ErrCurrencySymbolNotFound = errors.New("currency symbol not found")
	ErrInvalidConfig          = errors.New("invalid cashier configuration")
	ErrInvalidOptions         = errors.New("invalid options")
	ErrReferenceGeneration    = errors.New("failed to generate transaction reference")

	// Gateway-reported failures. Returned wrapped in *GatewayError so the
	// gateway's message survives.
	ErrGatewayCustomerCreateFailed = errors.New("failed to create gateway customer")
	ErrGatewayCustomerFetchFailed  = errors.New("failed to fetch gateway customer")
	ErrSubscriptionCreateFailed    = errors.New("failed to create subscription")
	ErrSubscriptionUpdateFailed    = errors.New("failed to update subscription at gateway")
	ErrIncompletePayment           = errors.New("payment was not completed")
	ErrRefundFailed                = errors.New("refund failed")
	ErrInvoiceCreateFailed         = errors.New("failed to create invoice")
	ErrGatewayRequestFailed        = errors.New("gateway request failed")

	ErrNotGatewayCustomer = errors.New("owner is not a gateway customer")
	ErrMissingDueDate     = errors.New("no due date provided")
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrBuilderDetached    = errors.New("subscription builder is not bound to a billable")

	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
	ErrOwnerNotFound             = errors.New("owner not found")

	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
	ErrMalformedWebhookPayload = errors.New("malformed webhook payload")
)

// GatewayError carries the message of a gateway response that reported
// status false. errors.Is matches it against Kind.
type GatewayError struct {
	Kind    error
	Message string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Kind
}

func newGatewayError(kind error, resp *Response) error {
	ge := &GatewayError{Kind: kind}
	if resp != nil {
		ge.Message = resp.Message
	}
	return ge
}
