package cashier

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/cashier/pkg/logger"
)

// Invoice is a gateway payment request.
type Invoice struct {
	ID          GatewayID         `json:"id"`
	RequestCode string            `json:"request_code"`
	Description string            `json:"description"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	Paid        bool              `json:"paid"`
	DueDate     string            `json:"due_date"`
	CreatedAt   string            `json:"created_at"`
	Customer    *GatewayCustomer  `json:"customer"`
	Discount    *InvoiceDiscount  `json:"discount"`
	LineItems   []InvoiceLineItem `json:"line_items"`
}

type InvoiceDiscount struct {
	Type      string `json:"type"`
	Amount    int64  `json:"amount"`
	AmountOff int64  `json:"amount_off"`
}

type InvoiceLineItem struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Quantity int    `json:"quantity"`
}

// Date parses CreatedAt.
func (i *Invoice) Date() (time.Time, error) {
	return time.Parse(time.RFC3339, i.CreatedAt)
}

// RawTotal is the invoice amount, never negative.
func (i *Invoice) RawTotal() int64 {
	return max(0, i.Amount)
}

// RawStartingBalance is the sum of the line item amounts.
func (i *Invoice) RawStartingBalance() int64 {
	var total int64
	for _, item := range i.LineItems {
		total += item.Amount
	}
	return total
}

func (i *Invoice) HasStartingBalance() bool {
	return i.RawStartingBalance() > 0
}

// Subtotal is the starting balance when line items exist, otherwise the
// amount before discount.
func (i *Invoice) Subtotal() int64 {
	if i.HasStartingBalance() {
		return i.RawStartingBalance()
	}
	var discount int64
	if i.Discount != nil {
		discount = i.Discount.Amount
	}
	return max(0, i.Amount-discount)
}

func (i *Invoice) HasDiscount() bool {
	return i.Discount != nil
}

func (i *Invoice) DiscountIsPercentage() bool {
	return i.Discount != nil && i.Discount.Type == "percentage"
}

// PercentOff is the discount percentage, or 0 for fixed discounts.
func (i *Invoice) PercentOff() int64 {
	if i.DiscountIsPercentage() {
		return i.Discount.Amount
	}
	return 0
}

func (i *Invoice) AmountOff() int64 {
	if i.Discount == nil {
		return 0
	}
	return i.Discount.AmountOff
}

// InvoiceOptions tune Tab.
type InvoiceOptions struct {
	DueDate time.Time
	// Extra keys merged into the gateway request.
	Extra Payload
}

// Tab creates a payment request of amount for c, due at opts.DueDate.
func (b *Billable) Tab(ctx context.Context, c *Customer, description string, amount int64, opts InvoiceOptions) (*Invoice, error) {
	if c.GatewayCustomerID == "" {
		return nil, ErrNotGatewayCustomer
	}
	if opts.DueDate.IsZero() {
		return nil, ErrMissingDueDate
	}

	p := Payload{
		"customer":    c.GatewayCustomerID,
		"amount":      amount,
		"currency":    b.cfg.Currency,
		"description": description,
	}
	for k, v := range opts.Extra {
		p[k] = v
	}
	p["due_date"] = opts.DueDate.Format(time.RFC3339)

	resp, err := b.gateway.CreateInvoice(ctx, p)
	if err != nil {
		return nil, errors.Join(ErrInvoiceCreateFailed, err)
	}
	if !resp.Status {
		return nil, newGatewayError(ErrInvoiceCreateFailed, resp)
	}

	var inv Invoice
	if err := resp.Decode(&inv); err != nil {
		return nil, errors.Join(ErrInvoiceCreateFailed, err)
	}
	return &inv, nil
}

// InvoiceFor is an alias of Tab.
func (b *Billable) InvoiceFor(ctx context.Context, c *Customer, description string, amount int64, opts InvoiceOptions) (*Invoice, error) {
	return b.Tab(ctx, c, description, amount, opts)
}

// FindInvoice fetches invoice id and checks it belongs to c.
func (b *Billable) FindInvoice(ctx context.Context, c *Customer, id string) (*Invoice, error) {
	resp, err := b.gateway.FindInvoice(ctx, id)
	if err != nil {
		return nil, errors.Join(ErrGatewayRequestFailed, err)
	}
	if !resp.Status {
		return nil, newGatewayError(ErrInvoiceNotFound, resp)
	}

	var inv Invoice
	if err := resp.Decode(&inv); err != nil {
		return nil, errors.Join(ErrGatewayRequestFailed, err)
	}
	if inv.Customer == nil || inv.Customer.ID.String() != c.GatewayCustomerID {
		b.log.WarnContext(ctx, "invoice belongs to another customer",
			logger.OwnerID(c.ID.String()),
			logger.InvoiceID(id),
		)
		return nil, ErrInvoiceNotFound
	}
	return &inv, nil
}

// Invoices lists the payment requests of c. params are passed through as
// query filters.
func (b *Billable) Invoices(ctx context.Context, c *Customer, params Payload) ([]Invoice, error) {
	if c.GatewayCustomerID == "" {
		return nil, ErrNotGatewayCustomer
	}

	q := params.Clone()
	q["customer"] = c.GatewayCustomerID

	resp, err := b.gateway.FetchInvoices(ctx, q)
	if err != nil {
		return nil, errors.Join(ErrGatewayRequestFailed, err)
	}
	if !resp.Status {
		return nil, newGatewayError(ErrGatewayRequestFailed, resp)
	}

	var invoices []Invoice
	if err := resp.Decode(&invoices); err != nil {
		return nil, errors.Join(ErrGatewayRequestFailed, err)
	}
	return invoices, nil
}

// PendingInvoices lists the unpaid payment requests of c.
func (b *Billable) PendingInvoices(ctx context.Context, c *Customer, params Payload) ([]Invoice, error) {
	q := params.Clone()
	q["status"] = "pending"
	return b.Invoices(ctx, c, q)
}

// PaidInvoices lists the settled payment requests of c.
func (b *Billable) PaidInvoices(ctx context.Context, c *Customer, params Payload) ([]Invoice, error) {
	q := params.Clone()
	q["paid"] = true
	return b.Invoices(ctx, c, q)
}
