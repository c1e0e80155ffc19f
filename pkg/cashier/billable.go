package cashier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/cashier/pkg/logger"
)

// Billable binds owner entities to the payment gateway. Every operation
// works on an explicit *Customer value; the service itself holds no
// per-owner state and is safe for concurrent use.
type Billable struct {
	gateway   Gateway
	store     Store
	cfg       Config
	now       func() time.Time
	log       *slog.Logger
	validate  *validator.Validate
	resolvers []FieldResolver
	formatter AmountFormatter
}

// Option configures a Billable.
type Option func(*Billable)

// WithConfig replaces DefaultConfig. The value is normalized by NewBillable.
func WithConfig(cfg Config) Option {
	return func(b *Billable) { b.cfg = cfg }
}

// WithClock sets the time source used for trial and end dates.
func WithClock(now func() time.Time) Option {
	return func(b *Billable) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets the logger for gateway outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(b *Billable) {
		if l != nil {
			b.log = l
		}
	}
}

// WithFieldResolver appends a resolver consulted when neither the explicit
// options, the owner nor its profile carry a customer field.
func WithFieldResolver(r FieldResolver) Option {
	return func(b *Billable) {
		if r != nil {
			b.resolvers = append(b.resolvers, r)
		}
	}
}

// WithAmountFormatter replaces the default rendering of FormatAmount.
func WithAmountFormatter(f AmountFormatter) Option {
	return func(b *Billable) { b.formatter = f }
}

// NewBillable creates the billing service.
// Panics if gateway or store is nil.
func NewBillable(gateway Gateway, store Store, opts ...Option) (*Billable, error) {
	if gateway == nil {
		panic("cashier: Gateway is required")
	}
	if store == nil {
		panic("cashier: Store is required")
	}

	b := &Billable{
		gateway:  gateway,
		store:    store,
		cfg:      DefaultConfig(),
		now:      utcNow,
		log:      logger.Discard(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(b)
	}

	cfg, err := b.cfg.Normalize()
	if err != nil {
		return nil, err
	}
	b.cfg = cfg

	return b, nil
}

// Config returns the normalized configuration.
func (b *Billable) Config() Config { return b.cfg }

// FormatAmount renders amount, in minor units, for display in the
// configured currency.
func (b *Billable) FormatAmount(amount int64) string {
	if b.formatter != nil {
		return b.formatter(amount)
	}
	return FormatAmount(amount, b.cfg.CurrencySymbol)
}

// PreferredCurrency is the currency sent with charges and invoices.
func (b *Billable) PreferredCurrency() string { return b.cfg.Currency }

// CreateAsGatewayCustomer creates the remote customer for c and stores the
// gateway id and code on it.
func (b *Billable) CreateAsGatewayCustomer(ctx context.Context, c *Customer, opts CustomerOptions) (*GatewayCustomer, error) {
	if err := b.validate.Struct(opts); err != nil {
		return nil, errors.Join(ErrInvalidOptions, err)
	}

	payload := resolveCustomerPayload(ctx, c, opts, b.resolvers)
	if !payload.Has(string(FieldEmail)) {
		return nil, errors.Join(ErrInvalidOptions, errors.New("customer email is required"))
	}

	resp, err := b.gateway.CreateCustomer(ctx, payload)
	if err != nil {
		return nil, errors.Join(ErrGatewayCustomerCreateFailed, err)
	}
	if !resp.Status {
		b.log.WarnContext(ctx, "gateway rejected customer creation",
			logger.OwnerID(c.ID.String()),
			logger.GatewayMessage(resp.Message),
		)
		return nil, newGatewayError(ErrGatewayCustomerCreateFailed, resp)
	}

	var gc GatewayCustomer
	if err := resp.Decode(&gc); err != nil {
		return nil, errors.Join(ErrGatewayCustomerCreateFailed, err)
	}

	c.GatewayCustomerID = gc.ID.String()
	c.GatewayCustomerCode = gc.CustomerCode
	if err := b.store.SaveCustomer(ctx, c); err != nil {
		return nil, err
	}

	b.log.InfoContext(ctx, "gateway customer created",
		logger.OwnerID(c.ID.String()),
		logger.CustomerCode(gc.CustomerCode),
	)
	return &gc, nil
}

// AsGatewayCustomer fetches the remote customer of c by its stored code.
func (b *Billable) AsGatewayCustomer(ctx context.Context, c *Customer) (*GatewayCustomer, error) {
	code := c.GatewayCustomerCode
	if code == "" {
		code = c.GatewayCustomerID
	}
	if code == "" {
		return nil, ErrNotGatewayCustomer
	}

	resp, err := b.gateway.FetchCustomer(ctx, code)
	if err != nil {
		return nil, errors.Join(ErrGatewayCustomerFetchFailed, err)
	}
	if !resp.Status {
		return nil, newGatewayError(ErrGatewayCustomerFetchFailed, resp)
	}

	var gc GatewayCustomer
	if err := resp.Decode(&gc); err != nil {
		return nil, errors.Join(ErrGatewayCustomerFetchFailed, err)
	}
	return &gc, nil
}

// gatewayCustomer creates the remote customer when c has none yet.
func (b *Billable) gatewayCustomer(ctx context.Context, c *Customer, opts CustomerOptions) (*GatewayCustomer, error) {
	if !c.HasGatewayCustomer() {
		return b.CreateAsGatewayCustomer(ctx, c, opts)
	}
	return b.AsGatewayCustomer(ctx, c)
}
