package cashier

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSubscriptionName is used when callers do not name a subscription.
const DefaultSubscriptionName = "default"

// Subscription is the local mirror of a gateway subscription.
// Status is never stored; it is derived from TrialEndsAt and EndsAt.
type Subscription struct {
	ID                      uuid.UUID
	OwnerID                 uuid.UUID
	Name                    string
	GatewaySubscriptionID   string // empty until the gateway id is known
	GatewaySubscriptionCode string // reconciliation key, unique system-wide
	PlanIdentifier          string
	Quantity                int
	TrialEndsAt             *time.Time
	EndsAt                  *time.Time
	SuspendedUntil          *time.Time // set when the gateway stops renewing
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// OnTrialAt reports whether the subscription trial is running at now.
func (s *Subscription) OnTrialAt(now time.Time) bool {
	return s.TrialEndsAt != nil && s.TrialEndsAt.After(now)
}

// OnGracePeriodAt reports whether the subscription was cancelled but has
// not yet reached EndsAt.
func (s *Subscription) OnGracePeriodAt(now time.Time) bool {
	return s.EndsAt != nil && s.EndsAt.After(now)
}

// ActiveAt reports whether the subscription is not cancelled or still in
// its grace period.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.EndsAt == nil || s.OnGracePeriodAt(now)
}

// Cancelled reports whether an end date was recorded, past or future.
func (s *Subscription) Cancelled() bool {
	return s.EndsAt != nil
}

// EndedAt reports whether the subscription is cancelled and past its grace
// period.
func (s *Subscription) EndedAt(now time.Time) bool {
	return s.Cancelled() && !s.OnGracePeriodAt(now)
}

// ValidAt reports whether the subscription grants access at now.
func (s *Subscription) ValidAt(now time.Time) bool {
	return s.ActiveAt(now) || s.OnTrialAt(now) || s.OnGracePeriodAt(now)
}

// RecurringAt reports whether the subscription is billing normally.
func (s *Subscription) RecurringAt(now time.Time) bool {
	return !s.OnTrialAt(now) && !s.Cancelled()
}

// Suspended reports whether the gateway announced it will not renew.
func (s *Subscription) Suspended() bool {
	return s.SuspendedUntil != nil
}

func (s *Subscription) OnTrial() bool       { return s.OnTrialAt(utcNow()) }
func (s *Subscription) OnGracePeriod() bool { return s.OnGracePeriodAt(utcNow()) }
func (s *Subscription) Active() bool        { return s.ActiveAt(utcNow()) }
func (s *Subscription) Ended() bool         { return s.EndedAt(utcNow()) }
func (s *Subscription) Valid() bool         { return s.ValidAt(utcNow()) }
func (s *Subscription) Recurring() bool     { return s.RecurringAt(utcNow()) }

// MarkAsCancelled ends the subscription at now without a grace period.
func (s *Subscription) MarkAsCancelled(now time.Time) {
	s.EndsAt = &now
	s.UpdatedAt = now
}

// MarkAsSuspended records that the subscription will not renew at next.
// It does not cancel the subscription.
func (s *Subscription) MarkAsSuspended(next, now time.Time) {
	s.SuspendedUntil = &next
	s.UpdatedAt = now
}

// SkipTrial ends the trial immediately.
func (s *Subscription) SkipTrial() {
	s.TrialEndsAt = nil
}

func (s *Subscription) clearEnd(now time.Time) {
	s.EndsAt = nil
	s.SuspendedUntil = nil
	s.UpdatedAt = now
}

// SubscriptionItem is a line entry of a multi-price subscription.
type SubscriptionItem struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	GatewayID      string
	Product        string
	Price          string
	Quantity       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func utcNow() time.Time {
	return time.Now().UTC()
}
