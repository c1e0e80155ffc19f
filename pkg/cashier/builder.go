package cashier

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cashier/pkg/logger"
)

// subscriptionChargeAmount is the amount of the authorization charge made
// by SubscriptionBuilder.Charge, in the currency's minor unit.
const subscriptionChargeAmount = 100

// SubscriptionBuilder collects the intent to subscribe an owner to a plan.
// Add writes the local row for a subscription the gateway already
// confirmed; Create asks the gateway first and then calls Add.
type SubscriptionBuilder struct {
	store    SubscriptionCreator
	billable *Billable
	owner    *Customer
	name     string
	plan     string
	now      func() time.Time

	trialDays int
	skipTrial bool
	coupon    string
}

// BuilderOption configures a SubscriptionBuilder.
type BuilderOption func(*SubscriptionBuilder)

// WithBuilderClock sets the time source used for trial dates.
func WithBuilderClock(now func() time.Time) BuilderOption {
	return func(b *SubscriptionBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewSubscriptionBuilder returns a builder that can only Add. Use
// Billable.NewSubscription for one that can also Create.
func NewSubscriptionBuilder(store SubscriptionCreator, owner *Customer, name, plan string, opts ...BuilderOption) *SubscriptionBuilder {
	if name == "" {
		name = DefaultSubscriptionName
	}
	b := &SubscriptionBuilder{
		store: store,
		owner: owner,
		name:  name,
		plan:  plan,
		now:   utcNow,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// TrialDays sets the trial length.
func (b *SubscriptionBuilder) TrialDays(days int) *SubscriptionBuilder {
	b.trialDays = days
	return b
}

// SkipTrial drops the trial. It wins over TrialDays.
func (b *SubscriptionBuilder) SkipTrial() *SubscriptionBuilder {
	b.skipTrial = true
	return b
}

// WithCoupon attaches a coupon code to the gateway request made by Create.
func (b *SubscriptionBuilder) WithCoupon(code string) *SubscriptionBuilder {
	b.coupon = code
	return b
}

func (b *SubscriptionBuilder) trialEnd(now time.Time) *time.Time {
	if b.skipTrial || b.trialDays <= 0 {
		return nil
	}
	t := now.AddDate(0, 0, b.trialDays)
	return &t
}

// Add inserts the local row for remote. The gateway id may be empty; the
// subscription code may not.
func (b *SubscriptionBuilder) Add(ctx context.Context, remote RemoteSubscription) (*Subscription, error) {
	if remote.SubscriptionCode == "" {
		return nil, errors.Join(ErrInvalidOptions, errors.New("subscription code is required"))
	}

	now := b.now()
	sub := &Subscription{
		ID:                      uuid.New(),
		OwnerID:                 b.owner.ID,
		Name:                    b.name,
		GatewaySubscriptionID:   remote.ID.String(),
		GatewaySubscriptionCode: remote.SubscriptionCode,
		PlanIdentifier:          b.plan,
		Quantity:                1,
		TrialEndsAt:             b.trialEnd(now),
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := b.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateOptions tune Create.
type CreateOptions struct {
	// Customer is used when the owner has no gateway customer yet.
	Customer CustomerOptions
	// Extra keys merged into the gateway request.
	Extra Payload
}

// Create resolves or creates the gateway customer, creates the remote
// subscription and stores it. token selects a saved authorization; when
// empty the gateway uses the customer's most recent one.
func (b *SubscriptionBuilder) Create(ctx context.Context, token string, opts CreateOptions) (*Subscription, error) {
	if b.billable == nil {
		return nil, ErrBuilderDetached
	}

	customer, err := b.billable.gatewayCustomer(ctx, b.owner, opts.Customer)
	if err != nil {
		return nil, err
	}

	now := b.now()
	start := now
	if t := b.trialEnd(now); t != nil {
		start = *t
	}

	payload := opts.Extra.Clone()
	payload["customer"] = customer.CustomerCode
	payload["plan"] = b.plan
	payload["start_date"] = start.Format(time.RFC3339)
	if token != "" {
		payload["authorization"] = token
	}
	if b.coupon != "" {
		payload["coupon"] = b.coupon
	}

	resp, err := b.billable.gateway.CreateSubscription(ctx, payload)
	if err != nil {
		return nil, errors.Join(ErrSubscriptionCreateFailed, err)
	}
	if !resp.Status {
		return nil, newGatewayError(ErrSubscriptionCreateFailed, resp)
	}

	var remote RemoteSubscription
	if err := resp.Decode(&remote); err != nil {
		return nil, errors.Join(ErrSubscriptionCreateFailed, err)
	}

	sub, err := b.Add(ctx, remote)
	if err != nil {
		return nil, err
	}

	b.billable.log.InfoContext(ctx, "subscription created",
		logger.SubscriptionCode(sub.GatewaySubscriptionCode),
		logger.OwnerID(sub.OwnerID.String()),
		logger.Plan(sub.PlanIdentifier),
	)
	return sub, nil
}

// Charge makes the small authorization charge a plan subscription needs
// when the owner has no reusable payment method yet.
func (b *SubscriptionBuilder) Charge(ctx context.Context, opts Payload) (*Response, error) {
	if b.billable == nil {
		return nil, ErrBuilderDetached
	}
	p := Payload{"plan": b.plan}
	for k, v := range opts {
		p[k] = v
	}
	return b.billable.Charge(ctx, b.owner, subscriptionChargeAmount, p)
}
