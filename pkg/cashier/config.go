package cashier

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds process-wide billing settings. It is read once at startup
// and never mutated afterwards.
type Config struct {
	Currency        string `env:"CASHIER_CURRENCY" envDefault:"NGN" validate:"required,len=3,alpha"`
	CurrencySymbol  string `env:"CASHIER_CURRENCY_SYMBOL"`
	Path            string `env:"CASHIER_PATH" envDefault:"paystack" validate:"required"`
	ReferenceLength int    `env:"CASHIER_REFERENCE_LENGTH" envDefault:"25" validate:"min=8,max=100"`
}

// DefaultConfig returns the settings used when none are loaded.
func DefaultConfig() Config {
	return Config{
		Currency:        "NGN",
		CurrencySymbol:  "₦",
		Path:            "paystack",
		ReferenceLength: DefaultReferenceLength,
	}
}

// Normalize validates c and fills the currency symbol when it is not set.
// The currency code is upper-cased.
func (c Config) Normalize() (Config, error) {
	if err := validator.New().Struct(c); err != nil {
		return c, errors.Join(ErrInvalidConfig, err)
	}
	c.Currency = strings.ToUpper(c.Currency)
	c.Path = strings.Trim(c.Path, "/")
	if c.CurrencySymbol == "" {
		sym, err := CurrencySymbol(c.Currency)
		if err != nil {
			return c, errors.Join(ErrInvalidConfig, err)
		}
		c.CurrencySymbol = sym
	}
	return c, nil
}
