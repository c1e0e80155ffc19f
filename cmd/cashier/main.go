package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/cashier/migrations"
	"github.com/dmitrymomot/cashier/pkg/broadcast"
	"github.com/dmitrymomot/cashier/pkg/cashier"
	"github.com/dmitrymomot/cashier/pkg/cashier/pgstore"
	"github.com/dmitrymomot/cashier/pkg/clientip"
	"github.com/dmitrymomot/cashier/pkg/config"
	"github.com/dmitrymomot/cashier/pkg/httpserver"
	"github.com/dmitrymomot/cashier/pkg/logger"
	"github.com/dmitrymomot/cashier/pkg/paystack"
	"github.com/dmitrymomot/cashier/pkg/pg"
	"github.com/dmitrymomot/cashier/pkg/reconcile"
	"github.com/dmitrymomot/cashier/pkg/redis"
	"github.com/dmitrymomot/cashier/pkg/webhook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app appConfig
	config.MustLoad(&app)

	log := logger.New(
		logger.WithEnvironment(app.Env, app.ServiceName),
		logger.WithContextExtractors(requestIDExtractor),
	)
	slog.SetDefault(log)

	if err := run(ctx, app, log); err != nil {
		log.Error("cashier stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, app appConfig, log *slog.Logger) error {
	var (
		pgCfg      pg.Config
		payCfg     paystack.Config
		cashierCfg cashier.Config
		httpCfg    httpserver.Config
	)
	if err := errors.Join(
		config.Load(&pgCfg),
		config.Load(&payCfg),
		config.Load(&cashierCfg),
		config.Load(&httpCfg),
	); err != nil {
		return err
	}
	cashierCfg, err := cashierCfg.Normalize()
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, ".", pgCfg, log); err != nil {
		return err
	}
	store := pgstore.New(pool)

	checks := []httpserver.Check{{Name: "postgres", Probe: pg.Healthcheck(pool)}}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	notifications := broadcast.NewMemoryBroadcaster[reconcile.Notification](app.NotifyBuffer)
	defer func() { _ = notifications.Close() }()

	opts := []reconcile.Option{
		reconcile.WithLogger(log),
		reconcile.WithMetrics(reconcile.NewMetrics(reg)),
		reconcile.WithNotifier(reconcile.NewBroadcastNotifier(notifications)),
	}

	if app.RedisLock {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		opts = append(opts, reconcile.WithLocker(redis.NewLocker(client, redisCfg), app.LockTTL))
		checks = append(checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
	}

	if app.NotifyURL != "" {
		fwd := reconcile.NewForwarder(webhook.NewSender(), app.NotifyURL, log,
			webhook.WithSignature(app.NotifySecret),
			webhook.WithTimeout(app.NotifyTimeout),
		)
		go fwd.Run(ctx, notifications.Subscribe(ctx))
	}

	engine := reconcile.NewEngine(payCfg.SecretKey, store, opts...)

	var allow *clientip.Allowlist
	if len(app.AllowedIPs) > 0 {
		allowOpts := []clientip.AllowlistOption{clientip.WithLogger(log)}
		if app.TrustProxy {
			allowOpts = append(allowOpts, clientip.TrustProxy())
		}
		if allow, err = clientip.NewAllowlist(app.AllowedIPs, allowOpts...); err != nil {
			return err
		}
	}

	router := newRouter(routerDeps{
		path:     cashierCfg.Path,
		webhook:  engine,
		allow:    allow,
		gatherer: reg,
		checks:   checks,
		timeout:  app.ReadinessTimeout,
		log:      log,
	})

	log.InfoContext(ctx, "cashier webhook endpoint ready",
		slog.String("path", "/"+cashierCfg.Path+"/webhook"),
		slog.Any("events", engine.Events()),
	)

	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, router)
}
