package cashier_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cashier/pkg/cashier"
	"github.com/dmitrymomot/cashier/pkg/cashier/memstore"
)

type mockGateway struct {
	mock.Mock
}

var _ cashier.Gateway = (*mockGateway)(nil)

func (m *mockGateway) respond(method string, args ...any) (*cashier.Response, error) {
	ret := m.MethodCalled(method, args...)
	r, _ := ret.Get(0).(*cashier.Response)
	return r, ret.Error(1)
}

func (m *mockGateway) CreateCustomer(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("CreateCustomer", ctx, p)
}

func (m *mockGateway) FetchCustomer(ctx context.Context, code string) (*cashier.Response, error) {
	return m.respond("FetchCustomer", ctx, code)
}

func (m *mockGateway) CreateSubscription(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("CreateSubscription", ctx, p)
}

func (m *mockGateway) EnableSubscription(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("EnableSubscription", ctx, p)
}

func (m *mockGateway) DisableSubscription(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("DisableSubscription", ctx, p)
}

func (m *mockGateway) ListCustomerSubscriptions(ctx context.Context, customerID string) (*cashier.Response, error) {
	return m.respond("ListCustomerSubscriptions", ctx, customerID)
}

func (m *mockGateway) Charge(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("Charge", ctx, p)
}

func (m *mockGateway) ChargeAuthorization(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("ChargeAuthorization", ctx, p)
}

func (m *mockGateway) MakePaymentRequest(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("MakePaymentRequest", ctx, p)
}

func (m *mockGateway) Refund(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("Refund", ctx, p)
}

func (m *mockGateway) CheckAuthorization(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("CheckAuthorization", ctx, p)
}

func (m *mockGateway) DeactivateAuthorization(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("DeactivateAuthorization", ctx, p)
}

func (m *mockGateway) CreateInvoice(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return m.respond("CreateInvoice", ctx, p)
}

func (m *mockGateway) FetchInvoices(ctx context.Context, params cashier.Payload) (*cashier.Response, error) {
	return m.respond("FetchInvoices", ctx, params)
}

func (m *mockGateway) FindInvoice(ctx context.Context, id string) (*cashier.Response, error) {
	return m.respond("FindInvoice", ctx, id)
}

// ok builds a successful gateway response carrying data.
func ok(t *testing.T, data any) *cashier.Response {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &cashier.Response{Status: true, Message: "ok", Data: raw}
}

func rejected(msg string) *cashier.Response {
	return &cashier.Response{Status: false, Message: msg}
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fixture struct {
	gw      *mockGateway
	store   *memstore.Store
	billing *cashier.Billable
	owner   *cashier.Customer
}

func newFixture(t *testing.T, opts ...cashier.Option) *fixture {
	t.Helper()

	owner := &cashier.Customer{
		ID:        uuid.New(),
		Email:     "ada@example.com",
		FirstName: "Ada",
	}
	f := &fixture{
		gw:    &mockGateway{},
		store: memstore.New(owner),
		owner: owner,
	}
	b, err := cashier.NewBillable(f.gw, f.store, append([]cashier.Option{cashier.WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	f.billing = b
	t.Cleanup(func() { f.gw.AssertExpectations(t) })
	return f
}

// customer marks the fixture owner as an existing gateway customer.
func (f *fixture) customer() *cashier.Customer {
	f.owner.GatewayCustomerID = "42"
	f.owner.GatewayCustomerCode = "CUS_ada"
	f.store.PutOwner(f.owner)
	return f.owner
}

func at(d time.Duration) *time.Time {
	t := fixedNow.Add(d)
	return &t
}
