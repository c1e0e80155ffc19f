package main

import "time"

type appConfig struct {
	Env         string `env:"ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"cashier"`

	// NotifyURL receives every processed webhook as a signed JSON
	// notification. Empty disables forwarding.
	NotifyURL     string        `env:"CASHIER_NOTIFY_URL" validate:"omitempty,url"`
	NotifySecret  string        `env:"CASHIER_NOTIFY_SECRET" validate:"required_with=NotifyURL"`
	NotifyTimeout time.Duration `env:"CASHIER_NOTIFY_TIMEOUT" envDefault:"10s"`
	NotifyBuffer  int           `env:"CASHIER_NOTIFY_BUFFER" envDefault:"256" validate:"min=1"`

	// RedisLock serializes webhook handling across instances.
	RedisLock bool          `env:"CASHIER_REDIS_LOCK" envDefault:"false"`
	LockTTL   time.Duration `env:"CASHIER_LOCK_TTL" envDefault:"30s"`

	AllowedIPs []string `env:"CASHIER_WEBHOOK_ALLOWED_IPS" envSeparator:","`
	TrustProxy bool     `env:"CASHIER_TRUST_PROXY" envDefault:"false"`

	ReadinessTimeout time.Duration `env:"CASHIER_READINESS_TIMEOUT" envDefault:"2s"`
}
