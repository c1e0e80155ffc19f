// Package memstore is an in-process cashier.Store. Units of work are
// serialized, so Tx.Lock never blocks; failed units of work revert only
// their own writes. Suited to tests and single-instance deployments.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cashier/pkg/cashier"
)

type state struct {
	owners map[uuid.UUID]cashier.Customer
	subs   map[uuid.UUID]cashier.Subscription
	codes  map[string]uuid.UUID
	items  map[uuid.UUID]cashier.SubscriptionItem
}

// Store keeps owners and subscriptions in memory.
// All methods are safe for concurrent use.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
}

var _ cashier.Store = (*Store)(nil)

// New returns a store seeded with owners.
func New(owners ...*cashier.Customer) *Store {
	s := &Store{data: state{
		owners: make(map[uuid.UUID]cashier.Customer),
		subs:   make(map[uuid.UUID]cashier.Subscription),
		codes:  make(map[string]uuid.UUID),
		items:  make(map[uuid.UUID]cashier.SubscriptionItem),
	}}
	for _, o := range owners {
		s.PutOwner(o)
	}
	return s
}

// PutOwner inserts or replaces an owner entity.
func (s *Store) PutOwner(c *cashier.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.owners[c.ID] = *c
}

func (s *Store) OwnerByID(_ context.Context, id uuid.UUID) (*cashier.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data.owners[id]
	if !ok {
		return nil, cashier.ErrOwnerNotFound
	}
	return &c, nil
}

func (s *Store) OwnerByEmail(_ context.Context, email string) (*cashier.Customer, error) {
	return s.findOwner(func(c cashier.Customer) bool {
		return email != "" && strings.EqualFold(c.Email, email)
	})
}

func (s *Store) OwnerByCustomerCode(_ context.Context, code string) (*cashier.Customer, error) {
	return s.findOwner(func(c cashier.Customer) bool {
		return code != "" && c.GatewayCustomerCode == code
	})
}

func (s *Store) findOwner(match func(cashier.Customer) bool) (*cashier.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.data.owners {
		if match(c) {
			return &c, nil
		}
	}
	return nil, cashier.ErrOwnerNotFound
}

// SaveCustomer overwrites the gateway and payment method fields only.
func (s *Store) SaveCustomer(_ context.Context, c *cashier.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCustomer(c)
}

func (s *Store) saveCustomer(c *cashier.Customer) error {
	cur, ok := s.data.owners[c.ID]
	if !ok {
		return cashier.ErrOwnerNotFound
	}
	cur.GatewayCustomerID = c.GatewayCustomerID
	cur.GatewayCustomerCode = c.GatewayCustomerCode
	cur.PaymentMethodType = c.PaymentMethodType
	cur.PaymentMethodLastFour = c.PaymentMethodLastFour
	cur.TrialEndsAt = c.TrialEndsAt
	s.data.owners[c.ID] = cur
	return nil
}

func (s *Store) SubscriptionsByOwner(_ context.Context, ownerID uuid.UUID) ([]*cashier.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*cashier.Subscription, 0)
	for _, sub := range s.data.subs {
		if sub.OwnerID == ownerID {
			out = append(out, &sub)
		}
	}
	slices.SortFunc(out, func(a, b *cashier.Subscription) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) SubscriptionByCode(_ context.Context, code string) (*cashier.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.data.codes[code]
	if !ok {
		return nil, cashier.ErrSubscriptionNotFound
	}
	sub := s.data.subs[id]
	return &sub, nil
}

func (s *Store) CreateSubscription(_ context.Context, sub *cashier.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSubscription(sub)
}

func (s *Store) createSubscription(sub *cashier.Subscription) error {
	if _, ok := s.data.codes[sub.GatewaySubscriptionCode]; ok {
		return cashier.ErrSubscriptionAlreadyExists
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	s.data.subs[sub.ID] = *sub
	s.data.codes[sub.GatewaySubscriptionCode] = sub.ID
	return nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *cashier.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSubscription(sub)
}

func (s *Store) updateSubscription(sub *cashier.Subscription) error {
	if _, ok := s.data.subs[sub.ID]; !ok {
		return cashier.ErrSubscriptionNotFound
	}
	s.data.subs[sub.ID] = *sub
	return nil
}

func (s *Store) SubscriptionItems(_ context.Context, subscriptionID uuid.UUID) ([]*cashier.SubscriptionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*cashier.SubscriptionItem, 0)
	for _, item := range s.data.items {
		if item.SubscriptionID == subscriptionID {
			out = append(out, &item)
		}
	}
	slices.SortFunc(out, func(a, b *cashier.SubscriptionItem) int {
		return cmp.Compare(a.GatewayID, b.GatewayID)
	})
	return out, nil
}

func (s *Store) SaveSubscriptionItem(_ context.Context, item *cashier.SubscriptionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSubscriptionItem(item)
}

func (s *Store) saveSubscriptionItem(item *cashier.SubscriptionItem) error {
	if _, ok := s.data.subs[item.SubscriptionID]; !ok {
		return cashier.ErrSubscriptionNotFound
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.data.items[item.ID] = *item
	return nil
}

// Atomic runs fn with exclusive access to the store's units of work. When
// fn fails, the writes made through tx are reverted in reverse order;
// writes made outside the unit of work are kept.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx cashier.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	t := &tx{Store: s}
	if err := fn(ctx, t); err != nil {
		s.mu.Lock()
		for _, undo := range slices.Backward(t.undo) {
			undo(&s.data)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// tx records how to revert each write it makes.
type tx struct {
	*Store
	undo []func(*state)
}

// Lock is satisfied by the serialization in Atomic.
func (t *tx) Lock(ctx context.Context, _ string) error {
	return ctx.Err()
}

func (t *tx) SaveCustomer(_ context.Context, c *cashier.Customer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.data.owners[c.ID]
	if err := t.saveCustomer(c); err != nil {
		return err
	}
	if ok {
		t.undo = append(t.undo, func(d *state) { d.owners[prev.ID] = prev })
	}
	return nil
}

func (t *tx) CreateSubscription(_ context.Context, sub *cashier.Subscription) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.createSubscription(sub); err != nil {
		return err
	}
	id, code := sub.ID, sub.GatewaySubscriptionCode
	t.undo = append(t.undo, func(d *state) {
		delete(d.subs, id)
		if d.codes[code] == id {
			delete(d.codes, code)
		}
	})
	return nil
}

func (t *tx) UpdateSubscription(_ context.Context, sub *cashier.Subscription) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.data.subs[sub.ID]
	if err := t.updateSubscription(sub); err != nil {
		return err
	}
	if ok {
		t.undo = append(t.undo, func(d *state) { d.subs[prev.ID] = prev })
	}
	return nil
}

func (t *tx) SaveSubscriptionItem(_ context.Context, item *cashier.SubscriptionItem) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, existed := t.data.items[item.ID]
	if err := t.saveSubscriptionItem(item); err != nil {
		return err
	}
	id := item.ID
	t.undo = append(t.undo, func(d *state) {
		if existed {
			d.items[id] = prev
			return
		}
		delete(d.items, id)
	})
	return nil
}
