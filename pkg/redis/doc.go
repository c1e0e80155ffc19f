// Package redis connects to Redis and provides the distributed lock used by
// the webhook engine when several instances receive deliveries for the same
// subscription or customer.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	engine := reconcile.NewEngine(secret, store,
//		reconcile.WithLocker(redis.NewLocker(client, cfg), reconcile.DefaultLockTTL),
//	)
//
// Healthcheck returns a probe suitable for readiness endpoints.
package redis
