package paystack

import "time"

// DefaultBaseURL is the Paystack REST API root.
const DefaultBaseURL = "https://api.paystack.co"

// Config holds the Paystack credentials and transport settings.
type Config struct {
	SecretKey     string        `env:"PAYSTACK_SECRET_KEY,required"`
	PublicKey     string        `env:"PAYSTACK_PUBLIC_KEY"`
	BaseURL       string        `env:"PAYSTACK_PAYMENT_URL" envDefault:"https://api.paystack.co"`
	MerchantEmail string        `env:"PAYSTACK_MERCHANT_EMAIL"`
	Timeout       time.Duration `env:"PAYSTACK_TIMEOUT" envDefault:"30s"`
}
