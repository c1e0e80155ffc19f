package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/cashier/pkg/cashier"
	"github.com/dmitrymomot/cashier/pkg/logger"
)

const msgSubscriptionGone = "Subscription not found or already cancelled"

// handleSubscriptionCreate mirrors a subscription created at the gateway.
// Redelivery of a stored code is acknowledged without a write.
func (e *Engine) handleSubscriptionCreate(ctx context.Context, evt Event) (Result, error) {
	var data cashier.RemoteSubscription
	if err := evt.Decode(&data); err != nil {
		return badRequest("Invalid subscription data"), nil
	}
	if data.SubscriptionCode == "" {
		return badRequest("Invalid subscription code"), nil
	}

	var res Result
	err := e.store.Atomic(ctx, func(ctx context.Context, tx cashier.Tx) error {
		if err := tx.Lock(ctx, cashier.SubscriptionLockKey(data.SubscriptionCode)); err != nil {
			return err
		}

		_, err := tx.SubscriptionByCode(ctx, data.SubscriptionCode)
		switch {
		case err == nil:
			res = ok("Subscription already exists")
			return nil
		case !errors.Is(err, cashier.ErrSubscriptionNotFound):
			return err
		}

		if data.Customer == nil || data.Customer.CustomerCode == "" {
			res = badRequest("User not found")
			return nil
		}
		owner, err := tx.OwnerByCustomerCode(ctx, data.Customer.CustomerCode)
		if errors.Is(err, cashier.ErrOwnerNotFound) {
			res = badRequest("User not found")
			return nil
		}
		if err != nil {
			return err
		}

		if data.Plan == nil || data.Plan.PlanCode == "" {
			res = badRequest("Invalid plan data")
			return nil
		}

		// The event id is not the gateway's subscription id.
		data.ID = ""
		sub, err := cashier.NewSubscriptionBuilder(tx, owner, data.Plan.Name, data.Plan.PlanCode,
			cashier.WithBuilderClock(e.now),
		).Add(ctx, data)
		if errors.Is(err, cashier.ErrSubscriptionAlreadyExists) {
			res = ok("Subscription already exists")
			return nil
		}
		if err != nil {
			return err
		}

		e.log.InfoContext(ctx, "subscription mirrored from webhook",
			logger.SubscriptionCode(sub.GatewaySubscriptionCode),
			logger.OwnerID(sub.OwnerID.String()),
			logger.Plan(sub.PlanIdentifier),
		)
		res = ok("Subscription created")
		return nil
	})
	return res, err
}

// chargeData is the part of a charge.success payload the handler reads.
type chargeData struct {
	Reference     string                   `json:"reference"`
	Customer      *cashier.GatewayCustomer `json:"customer"`
	Authorization *cashier.Authorization   `json:"authorization"`
}

// handleChargeSuccess refreshes the owner's gateway identity and payment
// method snapshot. The owner is found by email because a first charge can
// precede any stored customer code. Applying it twice is harmless.
func (e *Engine) handleChargeSuccess(ctx context.Context, evt Event) (Result, error) {
	var data chargeData
	if err := evt.Decode(&data); err != nil {
		return badRequest("Invalid charge data"), nil
	}
	if data.Customer == nil || data.Customer.Email == "" {
		return badRequest("User not found"), nil
	}

	var res Result
	err := e.store.Atomic(ctx, func(ctx context.Context, tx cashier.Tx) error {
		if err := tx.Lock(ctx, cashier.CustomerLockKey(data.Customer.Email)); err != nil {
			return err
		}

		owner, err := tx.OwnerByEmail(ctx, data.Customer.Email)
		if errors.Is(err, cashier.ErrOwnerNotFound) {
			res = badRequest("User not found")
			return nil
		}
		if err != nil {
			return err
		}

		if id := data.Customer.ID.String(); id != "" {
			owner.GatewayCustomerID = id
		}
		if data.Customer.CustomerCode != "" {
			owner.GatewayCustomerCode = data.Customer.CustomerCode
		}
		if a := data.Authorization; a != nil {
			owner.PaymentMethodType = a.CardType
			owner.PaymentMethodLastFour = a.Last4
		}
		if err := tx.SaveCustomer(ctx, owner); err != nil {
			return err
		}

		e.log.InfoContext(ctx, "payment method updated from webhook",
			logger.OwnerID(owner.ID.String()),
			logger.CustomerCode(owner.GatewayCustomerCode),
			logger.Reference(data.Reference),
			logger.CardLastFour(owner.PaymentMethodLastFour),
		)
		res = ok("Charge success handled")
		return nil
	})
	return res, err
}

// handleSubscriptionNotRenew schedules the end of a subscription the
// customer will not renew.
func (e *Engine) handleSubscriptionNotRenew(ctx context.Context, evt Event) (Result, error) {
	return e.transition(ctx, evt, "Subscription will not renew", func(sub *cashier.Subscription, data cashier.RemoteSubscription, now time.Time) {
		next := now
		if data.NextPaymentDate != nil {
			next = data.NextPaymentDate.UTC()
		}
		sub.MarkAsSuspended(next, now)
	})
}

// handleSubscriptionDisable ends a subscription immediately. A second
// delivery finds it ended and answers 404.
func (e *Engine) handleSubscriptionDisable(ctx context.Context, evt Event) (Result, error) {
	return e.transition(ctx, evt, "Subscription cancelled", func(sub *cashier.Subscription, _ cashier.RemoteSubscription, now time.Time) {
		sub.MarkAsCancelled(now)
	})
}

// transition applies mutate to a stored subscription that is still live:
// not cancelled, or cancelled but inside its grace period. The state check
// runs under the row lock so a concurrent create or disable is observed.
func (e *Engine) transition(
	ctx context.Context,
	evt Event,
	done string,
	mutate func(*cashier.Subscription, cashier.RemoteSubscription, time.Time),
) (Result, error) {
	var data cashier.RemoteSubscription
	if err := evt.Decode(&data); err != nil {
		return badRequest("Invalid subscription data"), nil
	}
	if data.SubscriptionCode == "" {
		return badRequest("Invalid subscription code"), nil
	}

	var res Result
	err := e.store.Atomic(ctx, func(ctx context.Context, tx cashier.Tx) error {
		if err := tx.Lock(ctx, cashier.SubscriptionLockKey(data.SubscriptionCode)); err != nil {
			return err
		}

		sub, err := tx.SubscriptionByCode(ctx, data.SubscriptionCode)
		if errors.Is(err, cashier.ErrSubscriptionNotFound) {
			res = notFound(msgSubscriptionGone)
			return nil
		}
		if err != nil {
			return err
		}

		now := e.now()
		if sub.Cancelled() && !sub.OnGracePeriodAt(now) {
			res = notFound(msgSubscriptionGone)
			return nil
		}

		mutate(sub, data, now)
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return err
		}

		e.log.InfoContext(ctx, "subscription updated from webhook",
			logger.Event(evt.Name),
			logger.SubscriptionCode(sub.GatewaySubscriptionCode),
			logger.OwnerID(sub.OwnerID.String()),
		)
		res = ok(done)
		return nil
	})
	return res, err
}
