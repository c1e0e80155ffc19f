package cashier

import (
	"context"
	"errors"

	"github.com/dmitrymomot/cashier/pkg/logger"
)

// Charge bills c for amount, in the currency's minor unit. The gateway
// operation is picked from opts: "authorization_code" charges a saved
// payment method, "card" or "bank" charges directly, anything else opens a
// hosted payment request. Currency and reference default from config and
// may be overridden through opts.
func (b *Billable) Charge(ctx context.Context, c *Customer, amount int64, opts Payload) (*Response, error) {
	if amount <= 0 {
		return nil, errors.Join(ErrInvalidOptions, errors.New("amount must be positive"))
	}
	if c.Email == "" {
		return nil, errors.Join(ErrInvalidOptions, errors.New("customer email is required"))
	}

	ref, err := NewReference(b.cfg.ReferenceLength)
	if err != nil {
		return nil, err
	}

	p := Payload{
		"currency":  b.cfg.Currency,
		"reference": ref,
	}
	for k, v := range opts {
		p[k] = v
	}
	p["email"] = c.Email
	p["amount"] = amount

	var resp *Response
	switch {
	case p.Has("authorization_code"):
		resp, err = b.gateway.ChargeAuthorization(ctx, p)
	case p.Has("card"), p.Has("bank"):
		resp, err = b.gateway.Charge(ctx, p)
	default:
		resp, err = b.gateway.MakePaymentRequest(ctx, p)
	}
	if err != nil {
		return nil, errors.Join(ErrIncompletePayment, err)
	}
	if !resp.Status {
		b.log.WarnContext(ctx, "charge rejected",
			logger.OwnerID(c.ID.String()),
			logger.Reference(p["reference"]),
			logger.GatewayMessage(resp.Message),
		)
		return resp, newGatewayError(ErrIncompletePayment, resp)
	}
	return resp, nil
}

// Refund refunds the transaction identified by reference or id. Local state
// is not touched.
func (b *Billable) Refund(ctx context.Context, transaction string, opts Payload) (*Response, error) {
	if transaction == "" {
		return nil, errors.Join(ErrInvalidOptions, errors.New("transaction is required"))
	}

	p := opts.Clone()
	p["transaction"] = transaction

	resp, err := b.gateway.Refund(ctx, p)
	if err != nil {
		return nil, errors.Join(ErrRefundFailed, err)
	}
	if !resp.Status {
		return resp, newGatewayError(ErrRefundFailed, resp)
	}
	return resp, nil
}
