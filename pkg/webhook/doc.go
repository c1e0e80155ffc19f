// Package webhook signs, verifies and delivers HTTP webhooks.
//
// Inbound provider webhooks are authenticated with VerifyBody, which checks
// a hex HMAC-SHA256 of the raw request body in constant time:
//
//	if err := webhook.VerifyBody(secret, body, r.Header.Get("X-Paystack-Signature")); err != nil {
//		// 403
//	}
//
// Outbound deliveries go through Sender, which marshals the payload to
// JSON, POSTs it, and retries temporary failures with a BackoffStrategy:
//
//	sender := webhook.NewSender()
//	err := sender.Send(ctx, url, event,
//		webhook.WithSignature(secret),
//		webhook.WithMaxRetries(5),
//	)
//
// WithSignature binds the digest to a timestamp (SignPayload); receivers
// check it with SignatureFromHeader and VerifySignature.
//
// Responses in the 4xx range stop retrying with ErrPermanentFailure, except
// 408, 425 and 429. Network errors and 5xx responses are retried until the
// attempts run out, which yields ErrWebhookDeliveryFailed.
package webhook
