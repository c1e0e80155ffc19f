package cashier

import (
	"crypto/rand"
	"errors"
)

// DefaultReferenceLength is the length of generated transaction references.
const DefaultReferenceLength = 25

const referencePool = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxUnbiased is the largest byte value that maps uniformly onto the pool.
const maxUnbiased = 256 - (256 % len(referencePool))

// NewReference returns a random alphanumeric transaction reference of the
// given length. Bytes that would bias the distribution are discarded.
func NewReference(length int) (string, error) {
	if length <= 0 {
		length = DefaultReferenceLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Join(ErrReferenceGeneration, err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, referencePool[int(b)%len(referencePool)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
