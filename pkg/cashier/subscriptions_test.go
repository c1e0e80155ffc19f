package cashier_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cashier/pkg/cashier"
)

func (f *fixture) seed(t *testing.T, s cashier.Subscription) *cashier.Subscription {
	t.Helper()
	s.ID = uuid.New()
	s.OwnerID = f.owner.ID
	if s.Name == "" {
		s.Name = cashier.DefaultSubscriptionName
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = fixedNow
	}
	require.NoError(t, f.store.CreateSubscription(context.Background(), &s))
	return &s
}

func TestBillable_Queries(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	day := 24 * time.Hour

	f.seed(t, cashier.Subscription{GatewaySubscriptionCode: "SUB_old", PlanIdentifier: "PLN_basic", EndsAt: at(-day), CreatedAt: fixedNow.Add(-30 * day)})
	f.seed(t, cashier.Subscription{GatewaySubscriptionCode: "SUB_new", PlanIdentifier: "PLN_pro", TrialEndsAt: at(day)})
	f.seed(t, cashier.Subscription{Name: "team", GatewaySubscriptionCode: "SUB_team", PlanIdentifier: "PLN_team", EndsAt: at(day)})

	subs, err := f.billing.Subscriptions(ctx, f.owner)
	require.NoError(t, err)
	assert.Len(t, subs, 3)

	sub, err := f.billing.Subscription(ctx, f.owner, "")
	require.NoError(t, err)
	assert.Equal(t, "SUB_new", sub.GatewaySubscriptionCode)

	missing, err := f.billing.Subscription(ctx, f.owner, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	tests := []struct {
		name string
		fn   func() (bool, error)
		want bool
	}{
		{"subscribed default", func() (bool, error) { return f.billing.Subscribed(ctx, f.owner, "", "") }, true},
		{"subscribed other plan", func() (bool, error) { return f.billing.Subscribed(ctx, f.owner, "", "PLN_basic") }, false},
		{"subscribed team in grace", func() (bool, error) { return f.billing.Subscribed(ctx, f.owner, "team", "PLN_team") }, true},
		{"subscribed missing name", func() (bool, error) { return f.billing.Subscribed(ctx, f.owner, "nope", "") }, false},
		{"on trial", func() (bool, error) { return f.billing.OnTrial(ctx, f.owner, "", "") }, true},
		{"on trial wrong plan", func() (bool, error) { return f.billing.OnTrial(ctx, f.owner, "", "PLN_basic") }, false},
		{"on trial team", func() (bool, error) { return f.billing.OnTrial(ctx, f.owner, "team", "") }, false},
		{"subscribed to plans", func() (bool, error) {
			return f.billing.SubscribedToPlan(ctx, f.owner, "", "PLN_basic", "PLN_pro")
		}, true},
		{"subscribed to none", func() (bool, error) { return f.billing.SubscribedToPlan(ctx, f.owner, "", "PLN_basic") }, false},
		{"on plan pro", func() (bool, error) { return f.billing.OnPlan(ctx, f.owner, "PLN_pro") }, true},
		{"on plan ended basic", func() (bool, error) { return f.billing.OnPlan(ctx, f.owner, "PLN_basic") }, false},
	}
	for _, tt := range tests {
		got, err := tt.fn()
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestBillable_GenericTrial(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.owner.TrialEndsAt = at(time.Hour)

	assert.True(t, f.billing.OnGenericTrial(f.owner))

	onTrial, err := f.billing.OnTrial(context.Background(), f.owner, "", "")
	require.NoError(t, err)
	assert.True(t, onTrial, "generic trial counts without name and plan")

	onTrial, err = f.billing.OnTrial(context.Background(), f.owner, "", "PLN_pro")
	require.NoError(t, err)
	assert.False(t, onTrial)
}

func (f *fixture) expectRemote(t *testing.T, remote map[string]any) {
	t.Helper()
	f.gw.On("ListCustomerSubscriptions", mock.Anything, "42").
		Return(ok(t, []map[string]any{
			{"id": 1, "subscription_code": "SUB_other", "email_token": "other"},
			remote,
		}), nil).Once()
}

func TestBillable_Cancel(t *testing.T) {
	t.Parallel()

	next := fixedNow.Add(10 * 24 * time.Hour)

	t.Run("ends at next payment date", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.customer()
		sub := f.seed(t, cashier.Subscription{GatewaySubscriptionID: "7", GatewaySubscriptionCode: "SUB_1"})

		f.expectRemote(t, map[string]any{"id": 7, "subscription_code": "SUB_1", "email_token": "tok", "next_payment_date": next})
		f.gw.On("DisableSubscription", mock.Anything, cashier.Payload{"token": "tok", "code": "SUB_1"}).
			Return(ok(t, nil), nil).Once()

		require.NoError(t, f.billing.Cancel(context.Background(), sub))
		assert.Equal(t, next, *sub.EndsAt)
		assert.True(t, sub.OnGracePeriodAt(fixedNow))

		stored, err := f.store.SubscriptionByCode(context.Background(), "SUB_1")
		require.NoError(t, err)
		assert.Equal(t, next, *stored.EndsAt)
	})

	t.Run("ends at trial end", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.customer()
		trialEnd := at(3 * 24 * time.Hour)
		sub := f.seed(t, cashier.Subscription{GatewaySubscriptionCode: "SUB_1", TrialEndsAt: trialEnd})

		f.expectRemote(t, map[string]any{"id": 7, "subscription_code": "SUB_1", "email_token": "tok", "next_payment_date": next})
		f.gw.On("DisableSubscription", mock.Anything, mock.Anything).Return(ok(t, nil), nil).Once()

		require.NoError(t, f.billing.Cancel(context.Background(), sub))
		assert.Equal(t, *trialEnd, *sub.EndsAt)
	})

	t.Run("cancel now", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.customer()
		sub := f.seed(t, cashier.Subscription{GatewaySubscriptionCode: "SUB_1"})

		f.expectRemote(t, map[string]any{"id": 7, "subscription_code": "SUB_1", "email_token": "tok", "next_payment_date": next})
		f.gw.On("DisableSubscription", mock.Anything, mock.Anything).Return(ok(t, nil), nil).Once()

		require.NoError(t, f.billing.CancelNow(context.Background(), sub))
		assert.True(t, sub.EndedAt(fixedNow))
	})

	t.Run("gateway rejection leaves row untouched", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.customer()
		sub := f.seed(t, cashier.Subscription{GatewaySubscriptionCode: "SUB_1"})

		f.expectRemote(t, map[string]any{"id": 7, "subscription_code": "SUB_1", "email_token": "tok"})
		f.gw.On("DisableSubscription", mock.Anything, mock.Anything).Return(rejected("Subscription not active"), nil).Once()

		err := f.billing.Cancel(context.Background(), sub)
		assert.ErrorIs(t, err, cashier.ErrSubscriptionUpdateFailed)
		assert.Nil(t, sub.EndsAt)
	})

	t.Run("unknown at gateway", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.customer()
		sub := f.seed(t, cashier.Subscription{GatewaySubscriptionCode: "SUB_1"})

		f.gw.On("ListCustomerSubscriptions", mock.Anything, "42").Return(ok(t, []any{}), nil).Once()

		err := f.billing.Cancel(context.Background(), sub)
		assert.ErrorIs(t, err, cashier.ErrSubscriptionNotFound)
	})

	t.Run("owner without gateway customer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, cashier.Subscription{GatewaySubscriptionCode: "SUB_1"})

		err := f.billing.Cancel(context.Background(), sub)
		assert.ErrorIs(t, err, cashier.ErrNotGatewayCustomer)
	})
}

func TestBillable_Resume(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.customer()
	sub := f.seed(t, cashier.Subscription{
		GatewaySubscriptionCode: "SUB_1",
		EndsAt:                  at(48 * time.Hour),
		SuspendedUntil:          at(48 * time.Hour),
	})

	f.expectRemote(t, map[string]any{"id": 7, "subscription_code": "SUB_1", "email_token": "tok"})
	f.gw.On("EnableSubscription", mock.Anything, cashier.Payload{"token": "tok", "code": "SUB_1"}).
		Return(ok(t, nil), nil).Once()

	require.NoError(t, f.billing.Resume(context.Background(), sub))
	assert.Nil(t, sub.EndsAt)
	assert.Nil(t, sub.SuspendedUntil)
	assert.True(t, sub.RecurringAt(fixedNow))
}

func TestBillable_MarkAs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	sub := f.seed(t, cashier.Subscription{GatewaySubscriptionCode: "SUB_1"})

	next := fixedNow.Add(5 * 24 * time.Hour)
	require.NoError(t, f.billing.MarkAsSuspended(ctx, sub, next))
	assert.Equal(t, next, *sub.SuspendedUntil)

	require.NoError(t, f.billing.MarkAsCancelled(ctx, sub))
	stored, err := f.store.SubscriptionByCode(ctx, "SUB_1")
	require.NoError(t, err)
	assert.Equal(t, fixedNow, *stored.EndsAt)
	assert.Equal(t, next, *stored.SuspendedUntil)
}

func TestBillable_Items(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	sub := f.seed(t, cashier.Subscription{GatewaySubscriptionCode: "SUB_1"})

	require.NoError(t, f.store.SaveSubscriptionItem(ctx, &cashier.SubscriptionItem{SubscriptionID: sub.ID, GatewayID: "b", Price: "PRC_b", Quantity: 1}))
	require.NoError(t, f.store.SaveSubscriptionItem(ctx, &cashier.SubscriptionItem{SubscriptionID: sub.ID, GatewayID: "a", Price: "PRC_a", Quantity: 2}))

	items, err := f.billing.Items(ctx, sub)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "PRC_a", items[0].Price)
}

func TestLockKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "subscription:SUB_1", cashier.SubscriptionLockKey("SUB_1"))
	assert.Equal(t, "customer:ada@example.com", cashier.CustomerLockKey("ada@example.com"))
	assert.Equal(t, cashier.CustomerLockKey("ada@example.com"), cashier.CustomerLockKey("ADA@Example.com"))
}
