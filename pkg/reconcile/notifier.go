package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrymomot/cashier/pkg/broadcast"
)

// Kind tells a received notification from a handled one.
type Kind string

const (
	// KindReceived is sent for every verified delivery with a valid envelope.
	KindReceived Kind = "received"
	// KindHandled is sent when a handler acknowledged the delivery.
	KindHandled Kind = "handled"
)

// Notification describes a webhook lifecycle step.
type Notification struct {
	Kind    Kind            `json:"kind"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	// Status and Message are set on handled notifications.
	Status  int       `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier receives lifecycle notifications. Notify is called on the
// request path and must not block for long; its error is logged only.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// BroadcastNotifier publishes notifications to a broadcaster.
type BroadcastNotifier struct {
	b broadcast.Broadcaster[Notification]
}

// NewBroadcastNotifier wraps b.
// Panics if b is nil.
func NewBroadcastNotifier(b broadcast.Broadcaster[Notification]) *BroadcastNotifier {
	if b == nil {
		panic("reconcile: broadcaster is required")
	}
	return &BroadcastNotifier{b: b}
}

func (n *BroadcastNotifier) Notify(ctx context.Context, notification Notification) error {
	return n.b.Broadcast(ctx, broadcast.Message[Notification]{Data: notification})
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }
