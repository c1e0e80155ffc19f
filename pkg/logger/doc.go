// Package logger builds *slog.Logger values for the billing services.
//
// New applies functional options (format, level, output, static
// attributes) and wraps the handler in LogHandlerDecorator, which adds
// attributes pulled from the record's context, such as the request id set
// by the HTTP middleware.
//
// attr.go holds constructors for the attribute keys used across the
// module (owner_id, customer_code, subscription_code, event and so on) so
// log queries stay consistent.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "cashier"),
//		logger.WithContextExtractors(requestIDFromContext),
//	)
//	log.InfoContext(ctx, "subscription cancelled", logger.SubscriptionCode(code))
package logger
