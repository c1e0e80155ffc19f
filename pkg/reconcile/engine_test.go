package reconcile_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cashier/pkg/cashier"
	"github.com/dmitrymomot/cashier/pkg/cashier/memstore"
	"github.com/dmitrymomot/cashier/pkg/reconcile"
	"github.com/dmitrymomot/cashier/pkg/webhook"
)

const secret = "sk_test_secret"

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type recorder struct {
	mu    sync.Mutex
	items []reconcile.Notification
}

func (r *recorder) Notify(_ context.Context, n reconcile.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return nil
}

func (r *recorder) kinds() []reconcile.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reconcile.Kind, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, n.Kind)
	}
	return out
}

type fixture struct {
	store    *memstore.Store
	engine   *reconcile.Engine
	notes    *recorder
	registry *prometheus.Registry
	owner    *cashier.Customer
}

func newFixture(t *testing.T, opts ...reconcile.Option) *fixture {
	t.Helper()

	owner := &cashier.Customer{
		ID:                  uuid.New(),
		Email:               "ada@example.com",
		GatewayCustomerCode: "CUS_ada",
	}
	f := &fixture{
		store:    memstore.New(owner),
		notes:    &recorder{},
		registry: prometheus.NewRegistry(),
		owner:    owner,
	}
	opts = append([]reconcile.Option{
		reconcile.WithClock(clock),
		reconcile.WithNotifier(f.notes),
		reconcile.WithMetrics(reconcile.NewMetrics(f.registry)),
	}, opts...)
	f.engine = reconcile.NewEngine(secret, f.store, opts...)
	return f
}

func (f *fixture) deliver(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	return f.deliverSigned(t, body, webhook.SignBody(secret, []byte(body)))
}

func (f *fixture) deliverSigned(t *testing.T, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/paystack/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(reconcile.DefaultSignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func subscriptionCreate(code, customer string) string {
	return `{"event":"subscription.create","data":{"id":9001,"subscription_code":"` + code + `",` +
		`"email_token":"tok_1","status":"active","next_payment_date":"2026-04-01T00:00:00.000Z",` +
		`"plan":{"plan_code":"PLN_pro","name":"pro"},` +
		`"customer":{"id":77,"customer_code":"` + customer + `","email":"ada@example.com"}}}`
}

func subscriptionEvent(event, code string) string {
	return `{"event":"` + event + `","data":{"subscription_code":"` + code + `",` +
		`"next_payment_date":"2026-04-01T00:00:00.000Z"}}`
}

func TestEngine_SignatureGate(t *testing.T) {
	t.Parallel()

	body := subscriptionCreate("SUB_1", "CUS_ada")

	tests := []struct {
		name      string
		body      string
		signature string
		want      int
	}{
		{name: "missing header", body: body, signature: "", want: http.StatusForbidden},
		{name: "garbage signature", body: body, signature: "not-a-signature", want: http.StatusForbidden},
		{name: "tampered body", body: strings.Replace(body, "PLN_pro", "PLN_free", 1), signature: webhook.SignBody(secret, []byte(body)), want: http.StatusForbidden},
		{name: "wrong secret", body: body, signature: webhook.SignBody("sk_other", []byte(body)), want: http.StatusForbidden},
		{name: "valid", body: body, signature: webhook.SignBody(secret, []byte(body)), want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			rec := f.deliverSigned(t, tt.body, tt.signature)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.Equal(t, "Forbidden", message(t, rec))
				assert.Empty(t, f.notes.kinds())
				_, err := f.store.SubscriptionByCode(context.Background(), "SUB_1")
				assert.ErrorIs(t, err, cashier.ErrSubscriptionNotFound)
				rejected(t, f, "signature", 1)
			}
		})
	}
}

func rejected(t *testing.T, f *fixture, reason string, count int) {
	t.Helper()
	expected := fmt.Sprintf(`
# HELP cashier_webhooks_rejected_total Webhook deliveries rejected before dispatch, by reason
# TYPE cashier_webhooks_rejected_total counter
cashier_webhooks_rejected_total{reason=%q} %d
`, reason, count)
	assert.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "cashier_webhooks_rejected_total"))
}

func TestEngine_PayloadGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `event=charge.success`},
		{name: "array", body: `[{"event":"charge.success"}]`},
		{name: "missing event", body: `{"data":{}}`},
		{name: "empty event", body: `{"event":"","data":{}}`},
		{name: "event not a string", body: `{"event":42,"data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			rec := f.deliver(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid payload", message(t, rec))
			assert.Empty(t, f.notes.kinds())
			rejected(t, f, "payload", 1)
		})
	}
}

func TestEngine_UnknownEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.deliver(t, `{"event":"transfer.success","data":{"amount":100}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Unhandled webhook event", message(t, rec))
	assert.Equal(t, []reconcile.Kind{reconcile.KindReceived}, f.notes.kinds())
	assert.Equal(t, "transfer.success", f.notes.items[0].Event)
}

func TestEngine_Notifications(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	body := subscriptionCreate("SUB_1", "CUS_ada")
	rec := f.deliver(t, body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, []reconcile.Kind{reconcile.KindReceived, reconcile.KindHandled}, f.notes.kinds())
	handled := f.notes.items[1]
	assert.Equal(t, reconcile.EventSubscriptionCreate, handled.Event)
	assert.Equal(t, http.StatusOK, handled.Status)
	assert.Equal(t, "Subscription created", handled.Message)
	assert.JSONEq(t, body, string(handled.Payload))
	assert.Equal(t, fixedNow, handled.At)

	// A 4xx answer is received but not handled.
	rec = f.deliver(t, subscriptionCreate("SUB_2", "CUS_nobody"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []reconcile.Kind{reconcile.KindReceived, reconcile.KindHandled, reconcile.KindReceived}, f.notes.kinds())
}

func TestEngine_NotifierErrorDoesNotFailDelivery(t *testing.T) {
	t.Parallel()
	f := newFixture(t, reconcile.WithNotifier(reconcile.NotifierFunc(func(context.Context, reconcile.Notification) error {
		return errors.New("subscriber gone")
	})))

	rec := f.deliver(t, subscriptionCreate("SUB_1", "CUS_ada"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEngine_Metrics(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.deliver(t, subscriptionCreate("SUB_1", "CUS_ada"))
	f.deliver(t, subscriptionCreate("SUB_1", "CUS_ada"))
	f.deliver(t, `{"event":"transfer.failed","data":{}}`)

	expected := `
# HELP cashier_webhooks_received_total Verified webhook deliveries by event
# TYPE cashier_webhooks_received_total counter
cashier_webhooks_received_total{event="subscription.create"} 2
cashier_webhooks_received_total{event="unhandled"} 1
# HELP cashier_webhooks_handled_total Webhook deliveries answered by a handler, by event and HTTP status
# TYPE cashier_webhooks_handled_total counter
cashier_webhooks_handled_total{event="subscription.create",status="200"} 2
`
	err := testutil.GatherAndCompare(f.registry, strings.NewReader(expected),
		"cashier_webhooks_received_total", "cashier_webhooks_handled_total")
	assert.NoError(t, err)
	series, err := testutil.GatherAndCount(f.registry, "cashier_webhook_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestEngine_CustomHandler(t *testing.T) {
	t.Parallel()

	var got reconcile.Event
	f := newFixture(t, reconcile.WithHandler("refund.processed", func(_ context.Context, evt reconcile.Event) (reconcile.Result, error) {
		got = evt
		return reconcile.Result{Status: http.StatusAccepted, Message: "queued"}, nil
	}))

	rec := f.deliver(t, `{"event":"refund.processed","data":{"id":3}}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "queued", message(t, rec))
	assert.JSONEq(t, `{"id":3}`, string(got.Data))
	assert.Contains(t, f.engine.Events(), "refund.processed")
}

func TestEngine_HandlerFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler reconcile.Handler
	}{
		{name: "error", handler: func(context.Context, reconcile.Event) (reconcile.Result, error) {
			return reconcile.Result{}, errors.New("database unavailable")
		}},
		{name: "panic", handler: func(context.Context, reconcile.Event) (reconcile.Result, error) {
			panic("boom")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, reconcile.WithHandler(reconcile.EventChargeSuccess, tt.handler))

			rec := f.deliver(t, `{"event":"charge.success","data":{}}`)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, []reconcile.Kind{reconcile.KindReceived}, f.notes.kinds())
		})
	}
}

func TestEngine_ServeHTTPTransport(t *testing.T) {
	t.Parallel()
	f := newFixture(t, reconcile.WithSignatureHeader("X-Gateway-Signature"))

	req := httptest.NewRequest(http.MethodGet, "/paystack/webhook", nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))

	big := `{"event":"charge.success","pad":"` + strings.Repeat("x", reconcile.MaxBodySize) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/paystack/webhook", strings.NewReader(big))
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	body := `{"event":"transfer.success","data":{}}`
	req = httptest.NewRequest(http.MethodPost, "/paystack/webhook", strings.NewReader(body))
	req.Header.Set("X-Gateway-Signature", webhook.SignBody(secret, []byte(body)))
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEngine_Process(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	body := []byte(`{"event":"transfer.success"}`)
	res := f.engine.Process(context.Background(), body, webhook.SignBody(secret, body))
	assert.True(t, res.OK())
	assert.Equal(t, "Unhandled webhook event", res.Message)

	res = f.engine.Process(context.Background(), body, "")
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestNewEnginePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { reconcile.NewEngine("", memstore.New()) })
	assert.Panics(t, func() { reconcile.NewEngine(secret, nil) })
}

func TestParseEvent(t *testing.T) {
	t.Parallel()

	evt, err := reconcile.ParseEvent([]byte(`{"event":"charge.success","data":{"reference":"r1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "charge.success", evt.Name)

	var data struct {
		Reference string `json:"reference"`
	}
	require.NoError(t, evt.Decode(&data))
	assert.Equal(t, "r1", data.Reference)

	_, err = reconcile.ParseEvent([]byte(`{}`))
	assert.ErrorIs(t, err, cashier.ErrMalformedWebhookPayload)

	evt, err = reconcile.ParseEvent([]byte(`{"event":"charge.success","data":null}`))
	require.NoError(t, err)
	assert.ErrorIs(t, evt.Decode(&data), cashier.ErrMalformedWebhookPayload)
}
