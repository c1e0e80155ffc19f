package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type cache struct {
	mu     sync.Mutex
	values map[reflect.Type]any
}

var (
	global = &cache{values: make(map[reflect.Type]any)}

	dotenvOnce sync.Once
	validate   = validator.New()
)

// Load fills v from the environment, loading ./.env once per process.
// Each config type is parsed and validated once; later calls get a copy
// of the cached value.
//
//	var cfg paystack.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() {
		// A missing .env file is fine.
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()

	global.mu.Lock()
	defer global.mu.Unlock()

	if cached, ok := global.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	var fresh T
	if err := parse(&fresh, env.Options{}); err != nil {
		return err
	}
	global.values[key] = fresh
	*v = fresh
	return nil
}

// MustLoad is Load that panics on failure. Use it in main only.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// Parse fills v from environ instead of the process environment. Nothing
// is cached.
func Parse[T any](v *T, environ map[string]string) error {
	if v == nil {
		return ErrNilPointer
	}
	return parse(v, env.Options{Environment: environ})
}

// Reset drops every cached config.
func Reset() {
	global.mu.Lock()
	clear(global.values)
	global.mu.Unlock()
}

func parse[T any](v *T, opts env.Options) error {
	if err := env.ParseWithOptions(v, opts); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if reflect.TypeFor[T]().Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}
