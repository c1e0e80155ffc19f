package redis

import "time"

type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"` // ConnectionURL format: "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`

	// LockPrefix namespaces the keys written by Locker.
	LockPrefix string `env:"REDIS_LOCK_PREFIX" envDefault:"cashier:lock:"`
	// LockRetryInterval is how often Acquire polls a held lock.
	LockRetryInterval time.Duration `env:"REDIS_LOCK_RETRY_INTERVAL" envDefault:"50ms"`
}
