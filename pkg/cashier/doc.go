// Package cashier binds an application's owner entities (usually users) to
// a payment gateway: it creates remote customers, tracks subscriptions,
// charges and refunds, and manages stored cards and payment requests.
//
// # Architecture
//
//   - Gateway: the payment provider port, implemented by pkg/paystack.
//   - Store: persistence of owner billing fields and subscription rows,
//     implemented by pgstore (PostgreSQL) and memstore (in-process).
//   - Subscription: the local mirror of a gateway subscription. Its state
//     (trialing, active, grace period, ended) is derived on read from
//     TrialEndsAt and EndsAt.
//   - SubscriptionBuilder: Add writes a row for a confirmed subscription,
//     Create asks the gateway first.
//   - Billable: the service tying the above together.
//
// Webhook reconciliation lives in pkg/reconcile and reuses
// SubscriptionBuilder.Add, so subscriptions created through the API and
// through webhooks have the same shape.
//
// # Usage
//
//	billable, err := cashier.NewBillable(paystackClient, store,
//		cashier.WithConfig(cfg),
//		cashier.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//
//	sub, err := billable.NewSubscription(user, "PLN_basic", "default").
//		TrialDays(14).
//		Create(ctx, "", cashier.CreateOptions{})
//
//	ok, err := billable.Subscribed(ctx, user, "default", "")
//
// # Errors
//
// Gateway responses with status false are returned as *GatewayError,
// which matches its sentinel with errors.Is and keeps the gateway message:
//
//	var ge *cashier.GatewayError
//	if errors.As(err, &ge) && errors.Is(err, cashier.ErrIncompletePayment) {
//		log.Warn("payment declined", "reason", ge.Message)
//	}
package cashier
