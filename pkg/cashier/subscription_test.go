package cashier_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/cashier/pkg/cashier"
)

func TestSubscription_State(t *testing.T) {
	t.Parallel()

	day := 24 * time.Hour
	tests := []struct {
		name        string
		trialEndsAt *time.Time
		endsAt      *time.Time
		onTrial     bool
		onGrace     bool
		active      bool
		cancelled   bool
		ended       bool
		valid       bool
		recurring   bool
	}{
		{name: "recurring", active: true, valid: true, recurring: true},
		{name: "on trial", trialEndsAt: at(day), onTrial: true, active: true, valid: true},
		{name: "trial over", trialEndsAt: at(-day), active: true, valid: true, recurring: true},
		{name: "grace period", endsAt: at(day), onGrace: true, active: true, cancelled: true, valid: true},
		{name: "ended", endsAt: at(-day), cancelled: true, ended: true},
		{name: "ends exactly now", endsAt: at(0), cancelled: true, ended: true},
		{name: "cancelled during trial", trialEndsAt: at(day), endsAt: at(day), onTrial: true, onGrace: true, active: true, cancelled: true, valid: true},
		{name: "ended but trial running", trialEndsAt: at(day), endsAt: at(-day), onTrial: true, cancelled: true, ended: true, valid: true},
		{name: "cancelled after trial", trialEndsAt: at(-day), endsAt: at(day), onGrace: true, active: true, cancelled: true, valid: true},
		{name: "ended after trial", trialEndsAt: at(-day), endsAt: at(-day), cancelled: true, ended: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &cashier.Subscription{TrialEndsAt: tt.trialEndsAt, EndsAt: tt.endsAt}

			assert.Equal(t, tt.onTrial, s.OnTrialAt(fixedNow), "on trial")
			assert.Equal(t, tt.onGrace, s.OnGracePeriodAt(fixedNow), "grace")
			assert.Equal(t, tt.active, s.ActiveAt(fixedNow), "active")
			assert.Equal(t, tt.cancelled, s.Cancelled(), "cancelled")
			assert.Equal(t, tt.ended, s.EndedAt(fixedNow), "ended")
			assert.Equal(t, tt.valid, s.ValidAt(fixedNow), "valid")
			assert.Equal(t, tt.recurring, s.RecurringAt(fixedNow), "recurring")
		})
	}
}

func TestSubscription_Mutations(t *testing.T) {
	t.Parallel()

	s := &cashier.Subscription{EndsAt: at(48 * time.Hour)}
	s.MarkAsCancelled(fixedNow)
	assert.Equal(t, fixedNow, *s.EndsAt)
	assert.Equal(t, fixedNow, s.UpdatedAt)
	assert.True(t, s.EndedAt(fixedNow))

	next := fixedNow.Add(72 * time.Hour)
	s = &cashier.Subscription{}
	s.MarkAsSuspended(next, fixedNow)
	assert.True(t, s.Suspended())
	assert.Equal(t, next, *s.SuspendedUntil)
	assert.False(t, s.Cancelled(), "suspension does not cancel")

	s = &cashier.Subscription{TrialEndsAt: at(time.Hour)}
	s.SkipTrial()
	assert.False(t, s.OnTrialAt(fixedNow))
}

func TestLatestSubscription(t *testing.T) {
	t.Parallel()

	older := &cashier.Subscription{Name: "default", CreatedAt: fixedNow.Add(-time.Hour)}
	newer := &cashier.Subscription{Name: "default", CreatedAt: fixedNow}
	other := &cashier.Subscription{Name: "team", CreatedAt: fixedNow.Add(time.Hour)}
	subs := []*cashier.Subscription{older, other, newer}

	assert.Same(t, newer, cashier.LatestSubscription(subs, ""))
	assert.Same(t, newer, cashier.LatestSubscription(subs, "default"))
	assert.Same(t, other, cashier.LatestSubscription(subs, "team"))
	assert.Nil(t, cashier.LatestSubscription(subs, "missing"))
	assert.Nil(t, cashier.LatestSubscription(nil, ""))
}

func TestCustomer_OnGenericTrialAt(t *testing.T) {
	t.Parallel()

	assert.False(t, (&cashier.Customer{}).OnGenericTrialAt(fixedNow))
	assert.True(t, (&cashier.Customer{TrialEndsAt: at(time.Hour)}).OnGenericTrialAt(fixedNow))
	assert.False(t, (&cashier.Customer{TrialEndsAt: at(0)}).OnGenericTrialAt(fixedNow))
}
