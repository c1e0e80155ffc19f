// Package pgstore is the PostgreSQL cashier.Store. It expects the schema in
// the migrations directory. Tx.Lock takes a transaction-scoped advisory
// lock, so concurrent webhook deliveries for one subscription code
// serialize across every instance sharing the database.
package pgstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/cashier/pkg/cashier"
	"github.com/dmitrymomot/cashier/pkg/pg"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads and writes through a pgx pool.
type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ cashier.Store = (*Store)(nil)

// New wraps pool.
// Panics if pool is nil.
func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &Store{queries: queries{db: pool}, pool: pool}
}

// Atomic runs fn in a transaction that commits when fn returns nil.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx cashier.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(t pgx.Tx) error {
		return fn(ctx, &tx{queries: queries{db: t}})
	})
}

type tx struct {
	queries
}

// Lock holds key until the transaction ends.
func (t *tx) Lock(ctx context.Context, key string) error {
	_, err := t.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	return err
}

type queries struct {
	db querier
}

const ownerColumns = `id, email, first_name, last_name, phone,
	COALESCE(gateway_customer_id, ''), COALESCE(gateway_customer_code, ''),
	COALESCE(card_type, ''), COALESCE(card_last_four, ''), trial_ends_at`

func scanOwner(row pgx.Row) (*cashier.Customer, error) {
	var c cashier.Customer
	err := row.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Phone,
		&c.GatewayCustomerID, &c.GatewayCustomerCode,
		&c.PaymentMethodType, &c.PaymentMethodLastFour, &c.TrialEndsAt)
	if pg.IsNotFoundError(err) {
		return nil, cashier.ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q queries) OwnerByID(ctx context.Context, id uuid.UUID) (*cashier.Customer, error) {
	return scanOwner(q.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM users WHERE id = $1`, id))
}

func (q queries) OwnerByEmail(ctx context.Context, email string) (*cashier.Customer, error) {
	return scanOwner(q.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (q queries) OwnerByCustomerCode(ctx context.Context, code string) (*cashier.Customer, error) {
	return scanOwner(q.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM users WHERE gateway_customer_code = $1 LIMIT 1`, code))
}

// SaveCustomer writes the gateway, card and trial columns of c.
func (q queries) SaveCustomer(ctx context.Context, c *cashier.Customer) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE users SET
			gateway_customer_id = NULLIF($2, ''),
			gateway_customer_code = NULLIF($3, ''),
			card_type = NULLIF($4, ''),
			card_last_four = NULLIF($5, ''),
			trial_ends_at = $6
		WHERE id = $1`,
		c.ID, c.GatewayCustomerID, c.GatewayCustomerCode,
		c.PaymentMethodType, c.PaymentMethodLastFour, c.TrialEndsAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return cashier.ErrOwnerNotFound
	}
	return nil
}

// UpsertOwner inserts c or refreshes its personal fields. Owners normally
// belong to the host application; this exists for seeding and tests.
func (q queries) UpsertOwner(ctx context.Context, c *cashier.Customer) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, phone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone`,
		c.ID, c.Email, c.FirstName, c.LastName, c.Phone,
	)
	if err != nil {
		return err
	}
	return q.SaveCustomer(ctx, c)
}

const subscriptionColumns = `id, owner_id, name, COALESCE(gateway_subscription_id, ''),
	gateway_subscription_code, plan_identifier, quantity,
	trial_ends_at, ends_at, suspended_until, created_at, updated_at`

func scanSubscription(row pgx.Row) (*cashier.Subscription, error) {
	var s cashier.Subscription
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.GatewaySubscriptionID,
		&s.GatewaySubscriptionCode, &s.PlanIdentifier, &s.Quantity,
		&s.TrialEndsAt, &s.EndsAt, &s.SuspendedUntil, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSubscription inserts s. A stored code yields
// ErrSubscriptionAlreadyExists without aborting the transaction.
func (q queries) CreateSubscription(ctx context.Context, s *cashier.Subscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	tag, err := q.db.Exec(ctx, `
		INSERT INTO subscriptions (
			id, owner_id, name, gateway_subscription_id, gateway_subscription_code,
			plan_identifier, quantity, trial_ends_at, ends_at, suspended_until,
			created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (gateway_subscription_code) DO NOTHING`,
		s.ID, s.OwnerID, s.Name, s.GatewaySubscriptionID, s.GatewaySubscriptionCode,
		s.PlanIdentifier, s.Quantity, s.TrialEndsAt, s.EndsAt, s.SuspendedUntil,
		s.CreatedAt, s.UpdatedAt,
	)
	if pg.IsForeignKeyViolationError(err) {
		return errors.Join(cashier.ErrOwnerNotFound, err)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return cashier.ErrSubscriptionAlreadyExists
	}
	return nil
}

func (q queries) SubscriptionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*cashier.Subscription, error) {
	rows, err := q.db.Query(ctx, `SELECT `+subscriptionColumns+`
		FROM subscriptions WHERE owner_id = $1
		ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*cashier.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q queries) SubscriptionByCode(ctx context.Context, code string) (*cashier.Subscription, error) {
	s, err := scanSubscription(q.db.QueryRow(ctx, `SELECT `+subscriptionColumns+`
		FROM subscriptions WHERE gateway_subscription_code = $1`, code))
	if pg.IsNotFoundError(err) {
		return nil, cashier.ErrSubscriptionNotFound
	}
	return s, err
}

func (q queries) UpdateSubscription(ctx context.Context, s *cashier.Subscription) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE subscriptions SET
			name = $2,
			gateway_subscription_id = NULLIF($3, ''),
			plan_identifier = $4,
			quantity = $5,
			trial_ends_at = $6,
			ends_at = $7,
			suspended_until = $8,
			updated_at = $9
		WHERE id = $1`,
		s.ID, s.Name, s.GatewaySubscriptionID, s.PlanIdentifier, s.Quantity,
		s.TrialEndsAt, s.EndsAt, s.SuspendedUntil, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return cashier.ErrSubscriptionNotFound
	}
	return nil
}

func (q queries) SubscriptionItems(ctx context.Context, subscriptionID uuid.UUID) ([]*cashier.SubscriptionItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, subscription_id, gateway_id, product, price, quantity, created_at, updated_at
		FROM subscription_items WHERE subscription_id = $1
		ORDER BY gateway_id`, subscriptionID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*cashier.SubscriptionItem, error) {
		var it cashier.SubscriptionItem
		err := row.Scan(&it.ID, &it.SubscriptionID, &it.GatewayID, &it.Product,
			&it.Price, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
		return &it, err
	})
}

// SaveSubscriptionItem inserts item or updates the row with the same id.
func (q queries) SaveSubscriptionItem(ctx context.Context, item *cashier.SubscriptionItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO subscription_items (id, subscription_id, gateway_id, product, price, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			gateway_id = EXCLUDED.gateway_id,
			product = EXCLUDED.product,
			price = EXCLUDED.price,
			quantity = EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at`,
		item.ID, item.SubscriptionID, item.GatewayID, item.Product, item.Price,
		item.Quantity, item.CreatedAt, item.UpdatedAt,
	)
	if pg.IsForeignKeyViolationError(err) {
		return errors.Join(cashier.ErrSubscriptionNotFound, err)
	}
	return err
}
