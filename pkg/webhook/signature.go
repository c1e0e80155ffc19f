package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Header names set on outbound deliveries signed with WithSignature.
const (
	HeaderSignature = "X-Cashier-Signature"
	HeaderTimestamp = "X-Cashier-Timestamp"
	HeaderID        = "X-Cashier-Delivery"
)

// SignBody returns the lowercase hex HMAC-SHA256 of body. This is the
// scheme payment providers use for their inbound webhooks: no timestamp,
// the digest covers the raw bytes exactly as received.
func SignBody(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyBody checks signature against SignBody(secret, body) in constant
// time. Hex case is ignored.
func VerifyBody(secret string, body []byte, signature string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureMismatch
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	if !hmac.Equal(h.Sum(nil), got) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignatureHeaders is the signature of an outbound delivery.
type SignatureHeaders struct {
	Signature string
	Timestamp int64
	ID        string
}

// Apply sets the signature headers on h.
func (s SignatureHeaders) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Signature)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	h.Set(HeaderID, s.ID)
}

// SignPayload signs an outbound delivery. The digest covers
// timestamp + "." + payload so a receiver can reject replays.
func SignPayload(secret string, payload []byte) (SignatureHeaders, error) {
	if secret == "" {
		return SignatureHeaders{}, fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return SignatureHeaders{}, fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	ts := time.Now().Unix()
	return SignatureHeaders{
		Signature: timestampedDigest(secret, ts, payload),
		Timestamp: ts,
		ID:        uuid.New().String(),
	}, nil
}

// VerifySignature validates a delivery produced by SignPayload. A zero
// maxAge disables the age check.
func VerifySignature(secret string, payload []byte, headers SignatureHeaders, maxAge time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if headers.Signature == "" {
		return ErrMissingSignature
	}

	if maxAge > 0 {
		age := time.Since(time.Unix(headers.Timestamp, 0))
		if age > maxAge {
			return fmt.Errorf("%w: timestamp too old: %v", ErrSignatureMismatch, age)
		}
		if age < -time.Minute {
			return fmt.Errorf("%w: timestamp is in the future", ErrSignatureMismatch)
		}
	}

	expected := timestampedDigest(secret, headers.Timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(headers.Signature))) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignatureFromHeader reads the headers written by SignatureHeaders.Apply.
func SignatureFromHeader(h http.Header) (SignatureHeaders, error) {
	sig := SignatureHeaders{
		Signature: h.Get(HeaderSignature),
		ID:        h.Get(HeaderID),
	}
	if sig.Signature == "" {
		return SignatureHeaders{}, ErrMissingSignature
	}
	ts, err := strconv.ParseInt(h.Get(HeaderTimestamp), 10, 64)
	if err != nil || ts == 0 {
		return SignatureHeaders{}, fmt.Errorf("%w: invalid timestamp", ErrSignatureMismatch)
	}
	sig.Timestamp = ts
	return sig, nil
}

func timestampedDigest(secret string, ts int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", ts)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
