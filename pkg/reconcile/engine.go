package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/cashier/pkg/cashier"
	"github.com/dmitrymomot/cashier/pkg/logger"
	"github.com/dmitrymomot/cashier/pkg/webhook"
)

// DefaultSignatureHeader carries the hex HMAC-SHA256 of the body.
const DefaultSignatureHeader = "X-Paystack-Signature"

// MaxBodySize is the largest webhook body ServeHTTP accepts.
const MaxBodySize = 1 << 20

// Engine verifies webhook deliveries and reconciles them into the store.
// It is safe for concurrent use; all shared state lives in the store.
type Engine struct {
	secret   string
	store    cashier.Store
	header   string
	handlers map[string]Handler
	notifier Notifier
	metrics  *Metrics
	locker   Locker
	lockTTL  time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for delivery outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithNotifier receives received and handled notifications.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithMetrics records deliveries in m. A nil m disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLocker serializes handlers across instances on the resource key of
// each event. ttl <= 0 selects DefaultLockTTL.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		if ttl > 0 {
			e.lockTTL = ttl
		}
	}
}

// WithClock sets the time source for subscription state transitions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSignatureHeader changes the header ServeHTTP reads the signature from.
func WithSignatureHeader(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.header = name
		}
	}
}

// WithHandler registers h for event, replacing a built-in handler of the
// same name.
func WithHandler(event string, h Handler) Option {
	return func(e *Engine) {
		if event != "" && h != nil {
			e.handlers[event] = h
		}
	}
}

// NewEngine creates the webhook engine.
// Panics if secret is empty or store is nil.
func NewEngine(secret string, store cashier.Store, opts ...Option) *Engine {
	if secret == "" {
		panic("reconcile: webhook secret is required")
	}
	if store == nil {
		panic("reconcile: store is required")
	}

	e := &Engine{
		secret:   secret,
		store:    store,
		header:   DefaultSignatureHeader,
		notifier: nopNotifier{},
		lockTTL:  DefaultLockTTL,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Discard(),
	}
	e.handlers = map[string]Handler{
		EventSubscriptionCreate:   e.handleSubscriptionCreate,
		EventChargeSuccess:        e.handleChargeSuccess,
		EventSubscriptionNotRenew: e.handleSubscriptionNotRenew,
		EventSubscriptionDisable:  e.handleSubscriptionDisable,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(logger.Component("reconcile"))
	return e
}

// Events returns the sorted names of events with a registered handler.
func (e *Engine) Events() []string {
	return slices.Sorted(maps.Keys(e.handlers))
}

// Process runs one delivery through signature verification, envelope
// parsing and dispatch. It never panics; every outcome is a Result.
func (e *Engine) Process(ctx context.Context, body []byte, signature string) Result {
	if err := webhook.VerifyBody(e.secret, body, signature); err != nil {
		e.metrics.observeRejected("signature")
		e.log.WarnContext(ctx, "webhook signature rejected", logger.Error(errors.Join(cashier.ErrInvalidWebhookSignature, err)))
		return resultForbidden
	}

	evt, err := ParseEvent(body)
	if err != nil {
		e.metrics.observeRejected("payload")
		e.log.WarnContext(ctx, "webhook payload rejected", logger.Error(err))
		return resultInvalid
	}

	handler, known := e.handlers[evt.Name]
	label := evt.Name
	if !known {
		label = unhandledLabel
	}
	e.metrics.observeReceived(label)
	e.notify(ctx, Notification{Kind: KindReceived, Event: evt.Name, Payload: evt.Raw, At: e.now()})

	if !known {
		e.log.InfoContext(ctx, "webhook event has no handler", logger.Event(evt.Name))
		return resultUnhandled
	}

	start := time.Now()
	res := e.run(ctx, evt, handler)
	elapsed := time.Since(start)
	e.metrics.observeHandled(label, res.Status, elapsed)

	log := e.log.With(logger.Event(evt.Name), logger.Status(res.Status), logger.Duration(elapsed))
	switch {
	case res.OK():
		log.InfoContext(ctx, "webhook handled", slog.String("message", res.Message))
		e.notify(ctx, Notification{
			Kind:    KindHandled,
			Event:   evt.Name,
			Payload: evt.Raw,
			Status:  res.Status,
			Message: res.Message,
			At:      e.now(),
		})
	case res.Status >= http.StatusInternalServerError:
		log.ErrorContext(ctx, "webhook failed", slog.String("message", res.Message))
	default:
		log.WarnContext(ctx, "webhook not applied", slog.String("message", res.Message))
	}
	return res
}

// run invokes h under the optional distributed lock and converts errors
// and panics into results.
func (e *Engine) run(ctx context.Context, evt Event, h Handler) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "webhook handler panicked",
				logger.Event(evt.Name),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
			res = resultFailed
		}
	}()

	if e.locker != nil {
		if key := lockKey(evt); key != "" {
			release, err := e.locker.Acquire(ctx, key, e.lockTTL)
			if err != nil {
				e.log.WarnContext(ctx, "webhook lock not acquired", logger.Event(evt.Name), logger.Error(err))
				return resultBusy
			}
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					e.log.WarnContext(ctx, "webhook lock release failed", logger.Error(err))
				}
			}()
		}
	}

	res, err := h(ctx, evt)
	if err != nil {
		e.log.ErrorContext(ctx, "webhook handler failed", logger.Event(evt.Name), logger.Error(err))
		return resultFailed
	}
	return res
}

func (e *Engine) notify(ctx context.Context, n Notification) {
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.log.WarnContext(ctx, "webhook notification failed",
			logger.Event(n.Event),
			slog.String("kind", string(n.Kind)),
			logger.Error(err),
		)
	}
}

// ServeHTTP reads the body and signature header, calls Process and writes
// the result as {"message": "..."}.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeResult(w, resultWrongMethod)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			e.metrics.observeRejected("size")
			writeResult(w, resultTooLarge)
			return
		}
		e.metrics.observeRejected("payload")
		writeResult(w, resultInvalid)
		return
	}

	writeResult(w, e.Process(r.Context(), body, r.Header.Get(e.header)))
}

func writeResult(w http.ResponseWriter, res Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	_ = json.NewEncoder(w).Encode(res)
}
