// Package reconcile turns Paystack webhook deliveries into local billing
// state.
//
// Every delivery passes through the same gates, in order:
//
//  1. The X-Paystack-Signature header must equal the hex HMAC-SHA256 of
//     the raw body under the secret key, or the answer is 403.
//  2. The body must be a JSON object with a string "event", or the answer
//     is 400. A received notification is sent once this passes.
//  3. Events without a handler are answered 200 so the gateway does not
//     redeliver them.
//  4. The handler runs inside Store.Atomic, takes Tx.Lock on the
//     subscription code (customer email for charge.success) and re-reads
//     state before writing. A handled notification follows a 2xx answer.
//
// Built-in handlers:
//
//   - subscription.create mirrors the subscription through
//     cashier.SubscriptionBuilder.Add. A stored code is acknowledged as is;
//     an unknown customer code is 400.
//   - charge.success stores the customer id, customer code, card type and
//     last four digits on the owner found by email.
//   - subscription.not_renew records the next payment date as the end of
//     service; subscription.disable ends the subscription now. Both answer
//     404 when the subscription is unknown or already ended.
//
// Handlers are idempotent: replaying a delivery leaves the same state.
//
// Usage:
//
//	engine := reconcile.NewEngine(cfg.SecretKey, store,
//		reconcile.WithLogger(log),
//		reconcile.WithMetrics(reconcile.NewMetrics(prometheus.DefaultRegisterer)),
//		reconcile.WithNotifier(reconcile.NewBroadcastNotifier(hub)),
//	)
//	r.Post("/paystack/webhook", engine.ServeHTTP)
package reconcile
