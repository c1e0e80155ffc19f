package reconcile

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/cashier/pkg/broadcast"
	"github.com/dmitrymomot/cashier/pkg/logger"
	"github.com/dmitrymomot/cashier/pkg/webhook"
)

// Forwarder relays notifications from a subscriber to an HTTP endpoint.
type Forwarder struct {
	sender *webhook.Sender
	url    string
	opts   []webhook.SendOption
	log    *slog.Logger
}

// NewForwarder creates a relay to url. opts apply to every delivery.
// Panics if sender is nil.
func NewForwarder(sender *webhook.Sender, url string, log *slog.Logger, opts ...webhook.SendOption) *Forwarder {
	if sender == nil {
		panic("reconcile: webhook sender is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Forwarder{
		sender: sender,
		url:    url,
		opts:   opts,
		log:    log.With(logger.Component("forwarder")),
	}
}

// Run delivers every notification received by sub until ctx is done or
// sub is closed. Failed deliveries are logged and dropped.
func (f *Forwarder) Run(ctx context.Context, sub broadcast.Subscriber[Notification]) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Receive(ctx):
			if !ok {
				return
			}
			n := msg.Data
			opts := append([]webhook.SendOption{webhook.WithHeader("X-Cashier-Event", n.Event)}, f.opts...)
			if err := f.sender.Send(ctx, f.url, n, opts...); err != nil {
				f.log.WarnContext(ctx, "notification forward failed",
					logger.Event(n.Event),
					slog.String("kind", string(n.Kind)),
					logger.Error(err),
				)
			}
		}
	}
}
