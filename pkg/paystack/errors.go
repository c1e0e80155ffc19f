package paystack

import "errors"

var (
	ErrMissingSecretKey   = errors.New("paystack: secret key is required")
	ErrRequestFailed      = errors.New("paystack: request failed")
	ErrUnexpectedResponse = errors.New("paystack: unexpected response")
)
