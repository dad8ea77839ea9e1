// Package store is the durable side of the pipeline: Postgres (via
// lib/pq) schema, seed data, and the SQL operations the admission glue,
// persister and HTTP transport call through. It holds no business logic
// of its own beyond "make these rows consistent"; price-time priority
// and event derivation live in internal/matching.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Registers the "postgres" driver with database/sql.
	_ "github.com/lib/pq"

	"github.com/saga-markets/dexbook/internal/decimal"
)

// Order statuses.
const (
	StatusPending   = "pending"
	StatusComplete  = "complete"
	StatusCancelled = "cancelled"
)

// ErrNotFound is returned by FindOrderOwner when no order row has the
// given id.
var ErrNotFound = errors.New("store: not found")

// Store wraps a *sql.DB and owns no other state.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres at dsn and verifies connectivity.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// FromDB wraps an already-open *sql.DB, e.g. a test database or one
// configured with non-default pool settings by the caller.
func FromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for components (the persister) that
// need to manage their own transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// AuthenticateAPIKey reports whether key is the registered api key for
// userID.
func (s *Store) AuthenticateAPIKey(ctx context.Context, userID int64, key string) (bool, error) {
	var found int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM api_keys WHERE user_id = $1 AND key = $2`, userID, key).Scan(&found)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("store: authenticate: %w", err)
	default:
		return true, nil
	}
}

// PendingOrder is the row PlaceOrder writes before handing the order to
// the matching engine.
type PendingOrder struct {
	ID     int64
	UserID int64
	Side   string
}

// DebitAndInsertOrder runs the admission transaction: lock the user's
// balance row in the required currency, check funds, debit, insert the
// pending order, and return its id. Opening balances are seeded ahead of
// time, but a lock against a missing row must still fail safely.
func (s *Store) DebitAndInsertOrder(ctx context.Context, userID int64, side, requiredCurrency string, amount, price, required decimal.Decimal) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	var current decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT amount FROM balances
		WHERE user_id = $1 AND currency = $2
		FOR UPDATE`, userID, requiredCurrency).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("store: lock balance: %w", err)
	}

	if current.Cmp(required) < 0 {
		return 0, ErrInsufficientFunds
	}

	remaining, err := current.Sub(required)
	if err != nil {
		return 0, fmt.Errorf("store: debit: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE balances SET amount = $1 WHERE user_id = $2 AND currency = $3`,
		remaining, userID, requiredCurrency); err != nil {
		return 0, fmt.Errorf("store: apply debit: %w", err)
	}

	var orderID int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, side, amount, price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, userID, side, amount, price, StatusPending).Scan(&orderID); err != nil {
		return 0, fmt.Errorf("store: insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return orderID, nil
}

// ErrInsufficientFunds is returned by DebitAndInsertOrder when the
// requesting user's balance cannot cover the order's notional.
var ErrInsufficientFunds = errors.New("store: insufficient funds")

// FindOrderOwner returns the (user_id, side) pair for an order id, or
// ErrNotFound. Used by the admission cancel path to check ownership
// before asking the engine to cancel.
func (s *Store) FindOrderOwner(ctx context.Context, orderID int64) (userID int64, side string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, side FROM orders WHERE id = $1`, orderID).Scan(&userID, &side)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("store: find order: %w", err)
	}
	return userID, side, nil
}

// OrderView is a durable order with its match rows, as returned by
// ListOrders.
type OrderView struct {
	ID     int64
	Side   string
	Amount decimal.Decimal
	Price  decimal.Decimal
	Status string
	Matches []MatchView
}

// MatchView is one trade row belonging to an order.
type MatchView struct {
	ID             int64
	MatchedOrderID int64
	Amount         decimal.Decimal
}

// ListOrders returns every order belonging to userID, ordered by id,
// with its match rows attached.
func (s *Store) ListOrders(ctx context.Context, userID int64) ([]OrderView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, side, amount, price, status FROM orders
		WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list orders: %w", err)
	}
	defer rows.Close()

	var views []OrderView
	byID := make(map[int64]*OrderView)
	for rows.Next() {
		var v OrderView
		if err := rows.Scan(&v.ID, &v.Side, &v.Amount, &v.Price, &v.Status); err != nil {
			return nil, fmt.Errorf("store: scan order: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range views {
		byID[views[i].ID] = &views[i]
	}
	if len(views) == 0 {
		return views, nil
	}

	matchRows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.order_id, m.matched_order_id, m.amount
		FROM matches m
		JOIN orders o ON o.id = m.order_id
		WHERE o.user_id = $1
		ORDER BY m.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list matches: %w", err)
	}
	defer matchRows.Close()

	for matchRows.Next() {
		var m MatchView
		var orderID int64
		if err := matchRows.Scan(&m.ID, &orderID, &m.MatchedOrderID, &m.Amount); err != nil {
			return nil, fmt.Errorf("store: scan match: %w", err)
		}
		if v, ok := byID[orderID]; ok {
			v.Matches = append(v.Matches, m)
		}
	}
	if err := matchRows.Err(); err != nil {
		return nil, err
	}

	return views, nil
}

// RequiredCurrencyForOrder returns "EUR" for a buy, "ETH" for a sell.
func RequiredCurrencyForOrder(side string) string {
	if side == "buy" {
		return "EUR"
	}
	return "ETH"
}
