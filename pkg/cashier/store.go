package cashier

import (
	"context"

	"github.com/google/uuid"
)

// OwnerStore persists the billing fields of owner entities.
type OwnerStore interface {
	// Lookups return ErrOwnerNotFound on a miss.
	OwnerByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	OwnerByEmail(ctx context.Context, email string) (*Customer, error)
	OwnerByCustomerCode(ctx context.Context, code string) (*Customer, error)

	// SaveCustomer writes the gateway and payment method fields of c.
	SaveCustomer(ctx context.Context, c *Customer) error
}

// SubscriptionCreator inserts subscription rows.
type SubscriptionCreator interface {
	// CreateSubscription returns ErrSubscriptionAlreadyExists when the
	// gateway subscription code is already stored.
	CreateSubscription(ctx context.Context, s *Subscription) error
}

// SubscriptionStore persists subscriptions and their items.
type SubscriptionStore interface {
	SubscriptionCreator

	// SubscriptionsByOwner returns rows ordered by CreatedAt descending.
	SubscriptionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Subscription, error)
	// SubscriptionByCode returns ErrSubscriptionNotFound on a miss.
	SubscriptionByCode(ctx context.Context, code string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, s *Subscription) error

	SubscriptionItems(ctx context.Context, subscriptionID uuid.UUID) ([]*SubscriptionItem, error)
	SaveSubscriptionItem(ctx context.Context, item *SubscriptionItem) error
}

// Tx is a unit of work. Reads made after Lock observe every write
// committed by an earlier holder of the same key.
type Tx interface {
	OwnerStore
	SubscriptionStore

	// Lock blocks until the caller holds key for the rest of the unit of work.
	Lock(ctx context.Context, key string) error
}

// Store is the persistence port.
type Store interface {
	OwnerStore
	SubscriptionStore

	// Atomic runs fn in a unit of work. A non-nil error from fn discards
	// every write made through tx.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
