package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrymomot/cashier/pkg/cashier"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed
// holder.
const DefaultLockTTL = 30 * time.Second

// Locker is a distributed mutex. It serializes deliveries across
// instances when the store cannot lock rows itself.
type Locker interface {
	// Acquire blocks until key is held or ctx is done. release must be
	// called once the work is finished.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// lockKey names the resource an event mutates, using the same keys the
// handlers pass to Tx.Lock. Events without one are not locked.
func lockKey(evt Event) string {
	var data struct {
		SubscriptionCode string `json:"subscription_code"`
		Customer         *struct {
			Email string `json:"email"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return ""
	}
	switch evt.Name {
	case EventChargeSuccess:
		if data.Customer != nil && data.Customer.Email != "" {
			return cashier.CustomerLockKey(data.Customer.Email)
		}
	default:
		if data.SubscriptionCode != "" {
			return cashier.SubscriptionLockKey(data.SubscriptionCode)
		}
	}
	return ""
}
