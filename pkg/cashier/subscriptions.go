package cashier

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/cashier/pkg/logger"
)

// NewSubscription starts building a subscription of c to plan. An empty
// name selects DefaultSubscriptionName.
func (b *Billable) NewSubscription(c *Customer, plan, name string) *SubscriptionBuilder {
	builder := NewSubscriptionBuilder(b.store, c, name, plan, WithBuilderClock(b.now))
	builder.billable = b
	return builder
}

// Subscriptions returns every subscription of c, newest first.
func (b *Billable) Subscriptions(ctx context.Context, c *Customer) ([]*Subscription, error) {
	return b.store.SubscriptionsByOwner(ctx, c.ID)
}

// Subscription returns the newest subscription of c with the given name,
// or nil when there is none.
func (b *Billable) Subscription(ctx context.Context, c *Customer, name string) (*Subscription, error) {
	subs, err := b.Subscriptions(ctx, c)
	if err != nil {
		return nil, err
	}
	return LatestSubscription(subs, name), nil
}

// LatestSubscription picks the subscription named name with the greatest
// CreatedAt. An empty name selects DefaultSubscriptionName.
func LatestSubscription(subs []*Subscription, name string) *Subscription {
	if name == "" {
		name = DefaultSubscriptionName
	}
	var latest *Subscription
	for _, s := range subs {
		if s.Name != name {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	return latest
}

// OnGenericTrial reports whether the owner-level trial of c is running.
func (b *Billable) OnGenericTrial(c *Customer) bool {
	return c.OnGenericTrialAt(b.now())
}

// OnTrial reports whether the named subscription is on trial, optionally
// for plan. When both name and plan are empty a running generic trial
// also counts.
func (b *Billable) OnTrial(ctx context.Context, c *Customer, name, plan string) (bool, error) {
	now := b.now()
	if name == "" && plan == "" && c.OnGenericTrialAt(now) {
		return true, nil
	}

	sub, err := b.Subscription(ctx, c, name)
	if err != nil || sub == nil {
		return false, err
	}
	return sub.OnTrialAt(now) && (plan == "" || sub.PlanIdentifier == plan), nil
}

// Subscribed reports whether the named subscription is valid, optionally
// for plan.
func (b *Billable) Subscribed(ctx context.Context, c *Customer, name, plan string) (bool, error) {
	sub, err := b.Subscription(ctx, c, name)
	if err != nil || sub == nil {
		return false, err
	}
	return sub.ValidAt(b.now()) && (plan == "" || sub.PlanIdentifier == plan), nil
}

// SubscribedToPlan reports whether the named subscription is valid and on
// one of plans.
func (b *Billable) SubscribedToPlan(ctx context.Context, c *Customer, name string, plans ...string) (bool, error) {
	sub, err := b.Subscription(ctx, c, name)
	if err != nil || sub == nil {
		return false, err
	}
	if !sub.ValidAt(b.now()) {
		return false, nil
	}
	return slices.Contains(plans, sub.PlanIdentifier), nil
}

// OnPlan reports whether any valid subscription of c is on plan.
func (b *Billable) OnPlan(ctx context.Context, c *Customer, plan string) (bool, error) {
	subs, err := b.Subscriptions(ctx, c)
	if err != nil {
		return false, err
	}
	now := b.now()
	return slices.ContainsFunc(subs, func(s *Subscription) bool {
		return s.PlanIdentifier == plan && s.ValidAt(now)
	}), nil
}

// Items returns the line items of sub.
func (b *Billable) Items(ctx context.Context, sub *Subscription) ([]*SubscriptionItem, error) {
	return b.store.SubscriptionItems(ctx, sub.ID)
}

// Cancel disables the subscription at the gateway and schedules its end:
// at the trial end while on trial, otherwise at the next payment date.
func (b *Billable) Cancel(ctx context.Context, sub *Subscription) error {
	remote, err := b.remoteSubscription(ctx, sub)
	if err != nil {
		return err
	}

	resp, err := b.gateway.DisableSubscription(ctx, Payload{
		"token": remote.EmailToken,
		"code":  remote.SubscriptionCode,
	})
	if err != nil {
		return errors.Join(ErrSubscriptionUpdateFailed, err)
	}
	if !resp.Status {
		return newGatewayError(ErrSubscriptionUpdateFailed, resp)
	}

	err = b.persist(ctx, sub, func(s *Subscription, now time.Time) {
		switch {
		case s.OnTrialAt(now):
			ends := *s.TrialEndsAt
			s.EndsAt = &ends
		case remote.NextPaymentDate != nil:
			ends := remote.NextPaymentDate.UTC()
			s.EndsAt = &ends
		default:
			s.EndsAt = &now
		}
		s.UpdatedAt = now
	})
	if err != nil {
		return err
	}

	b.log.InfoContext(ctx, "subscription cancelled",
		logger.SubscriptionCode(sub.GatewaySubscriptionCode),
		logger.OwnerID(sub.OwnerID.String()),
	)
	return nil
}

// CancelNow cancels the subscription and ends it immediately.
func (b *Billable) CancelNow(ctx context.Context, sub *Subscription) error {
	if err := b.Cancel(ctx, sub); err != nil {
		return err
	}
	return b.MarkAsCancelled(ctx, sub)
}

// Resume re-enables a cancelled subscription that is still in its grace
// period and clears its end date.
func (b *Billable) Resume(ctx context.Context, sub *Subscription) error {
	remote, err := b.remoteSubscription(ctx, sub)
	if err != nil {
		return err
	}

	resp, err := b.gateway.EnableSubscription(ctx, Payload{
		"token": remote.EmailToken,
		"code":  remote.SubscriptionCode,
	})
	if err != nil {
		return errors.Join(ErrSubscriptionUpdateFailed, err)
	}
	if !resp.Status {
		return newGatewayError(ErrSubscriptionUpdateFailed, resp)
	}

	if err := b.persist(ctx, sub, func(s *Subscription, now time.Time) { s.clearEnd(now) }); err != nil {
		return err
	}

	b.log.InfoContext(ctx, "subscription resumed",
		logger.SubscriptionCode(sub.GatewaySubscriptionCode),
		logger.OwnerID(sub.OwnerID.String()),
	)
	return nil
}

// MarkAsCancelled ends the subscription now without calling the gateway.
func (b *Billable) MarkAsCancelled(ctx context.Context, sub *Subscription) error {
	return b.persist(ctx, sub, func(s *Subscription, now time.Time) { s.MarkAsCancelled(now) })
}

// MarkAsSuspended records that the subscription will not renew at next.
func (b *Billable) MarkAsSuspended(ctx context.Context, sub *Subscription, next time.Time) error {
	return b.persist(ctx, sub, func(s *Subscription, now time.Time) { s.MarkAsSuspended(next, now) })
}

// persist applies mutate to the stored row under the subscription lock and
// copies the result back into sub.
func (b *Billable) persist(ctx context.Context, sub *Subscription, mutate func(*Subscription, time.Time)) error {
	now := b.now()
	if sub.GatewaySubscriptionCode == "" {
		mutate(sub, now)
		return b.store.UpdateSubscription(ctx, sub)
	}

	return b.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Lock(ctx, SubscriptionLockKey(sub.GatewaySubscriptionCode)); err != nil {
			return err
		}
		fresh, err := tx.SubscriptionByCode(ctx, sub.GatewaySubscriptionCode)
		if err != nil {
			return err
		}
		mutate(fresh, now)
		if err := tx.UpdateSubscription(ctx, fresh); err != nil {
			return err
		}
		*sub = *fresh
		return nil
	})
}

// remoteSubscription finds sub among the gateway subscriptions of its
// owner. Rows created from a webhook carry no gateway id, so those are
// matched by code.
func (b *Billable) remoteSubscription(ctx context.Context, sub *Subscription) (*RemoteSubscription, error) {
	owner, err := b.store.OwnerByID(ctx, sub.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner.GatewayCustomerID == "" {
		return nil, errors.Join(ErrSubscriptionNotFound, ErrNotGatewayCustomer)
	}

	resp, err := b.gateway.ListCustomerSubscriptions(ctx, owner.GatewayCustomerID)
	if err != nil {
		return nil, errors.Join(ErrGatewayRequestFailed, err)
	}
	if !resp.Status {
		return nil, newGatewayError(ErrSubscriptionNotFound, resp)
	}

	var remotes []RemoteSubscription
	if err := resp.Decode(&remotes); err != nil {
		return nil, errors.Join(ErrGatewayRequestFailed, err)
	}

	for i := range remotes {
		r := &remotes[i]
		if sub.GatewaySubscriptionID != "" && r.ID.String() == sub.GatewaySubscriptionID {
			return r, nil
		}
		if sub.GatewaySubscriptionID == "" && r.SubscriptionCode == sub.GatewaySubscriptionCode {
			return r, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

// SubscriptionLockKey is the lock key guarding one subscription row.
func SubscriptionLockKey(code string) string {
	return "subscription:" + code
}

// CustomerLockKey is the lock key guarding the payment fields of one owner.
// Emails match case-insensitively, so the key is lower-cased.
func CustomerLockKey(email string) string {
	return "customer:" + strings.ToLower(email)
}
