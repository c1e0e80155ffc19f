package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups the non-nil errors under "errors".
// Returns an empty Attr when every error is nil.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records err under "error". Returns an empty Attr for nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under "request_id".
// Returns an empty Attr for nil or an empty string.
func RequestID(id any) slog.Attr {
	if id == nil || id == "" {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// OwnerID records the billing owner under "owner_id".
func OwnerID(id string) slog.Attr {
	return slog.String("owner_id", id)
}

// CustomerCode records the gateway customer code under "customer_code".
func CustomerCode(code string) slog.Attr {
	return slog.String("customer_code", code)
}

// SubscriptionCode records the gateway subscription code under
// "subscription_code".
func SubscriptionCode(code string) slog.Attr {
	return slog.String("subscription_code", code)
}

// Plan records the plan identifier under "plan".
func Plan(plan string) slog.Attr {
	return slog.String("plan", plan)
}

// Reference records a transaction reference under "reference".
func Reference(ref any) slog.Attr {
	return slog.Any("reference", ref)
}

// InvoiceID records a payment request id under "invoice_id".
func InvoiceID(id string) slog.Attr {
	return slog.String("invoice_id", id)
}

// CardLastFour records the last digits of a card under "card_last_four".
func CardLastFour(last4 string) slog.Attr {
	return slog.String("card_last_four", last4)
}

// GatewayMessage records a message returned by the payment gateway under
// "gateway_message".
func GatewayMessage(msg string) slog.Attr {
	return slog.String("gateway_message", msg)
}

// Status records an HTTP status code under "status".
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

// Duration records a duration under "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the webhook event name under "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
