// Package admission implements the synchronous glue between external
// callers and the matching engine: validating orders, debiting balances,
// writing the pending order row, and handing the in-memory
// order to the book. Everything here runs under the store's own
// transactions; once an order reaches the book, its lifecycle continues
// asynchronously through internal/persister.
package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/saga-markets/dexbook/internal/decimal"
	"github.com/saga-markets/dexbook/internal/matching"
	"github.com/saga-markets/dexbook/internal/store"
)

var (
	// ErrValidation covers malformed side/amount/price input. Nothing is
	// mutated when this is returned.
	ErrValidation = errors.New("admission: validation failed")

	// ErrInsufficientFunds is returned in place of the store layer's
	// store.ErrInsufficientFunds.
	ErrInsufficientFunds = errors.New("admission: insufficient funds")

	// ErrUnknownOrder covers a cancel of a non-existent or non-owned
	// order id.
	ErrUnknownOrder = errors.New("admission: unknown order")
)

// Store is the subset of internal/store.Store the admission service
// needs, narrowed to an interface so the service can be exercised
// against a fake in tests without a live Postgres instance.
type Store interface {
	DebitAndInsertOrder(ctx context.Context, userID int64, side, requiredCurrency string, amount, price, required decimal.Decimal) (int64, error)
	FindOrderOwner(ctx context.Context, orderID int64) (userID int64, side string, err error)
	ListOrders(ctx context.Context, userID int64) ([]store.OrderView, error)
}

// Engine is the subset of *matching.OrderBook the admission service
// drives.
type Engine interface {
	AddOrder(order *matching.Order) error
	CancelOrderByID(id int64)
}

// Service implements order placement, cancellation, and listing.
type Service struct {
	store  Store
	engine Engine
}

// New builds a Service over the given durable store and matching engine.
func New(store Store, engine Engine) *Service {
	return &Service{store: store, engine: engine}
}

// PlaceOrder validates the request, debits the requesting user's balance
// for the notional, writes a pending order row, and hands the resulting
// in-memory order to the engine. Returns the new order id.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, sideStr, amountStr, priceStr string) (int64, error) {
	side, err := matching.ParseSide(sideStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	amount, err := decimal.Parse(amountStr)
	if err != nil || !amount.IsPositive() {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrValidation, amountStr)
	}

	price, err := decimal.Parse(priceStr)
	if err != nil || !price.IsPositive() {
		return 0, fmt.Errorf("%w: invalid price %q", ErrValidation, priceStr)
	}

	required := amount
	if side == matching.SideBuy {
		required, err = amount.Mul(price)
		if err != nil {
			return 0, fmt.Errorf("%w: notional overflow", ErrValidation)
		}
	}

	orderID, err := s.store.DebitAndInsertOrder(ctx, userID, sideStr, side.RequiredCurrency(), amount, price, required)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}

	bookOrder := matching.NewOrder(orderID, side, amount, price)
	if err := s.engine.AddOrder(bookOrder); err != nil {
		return 0, fmt.Errorf("admission: engine rejected order %d: %w", orderID, err)
	}

	return orderID, nil
}

// CancelOrder checks ownership against the durable record, then asks the
// engine to cancel. The engine's own cancel is idempotent and silent on
// a miss; ownership/existence is what this layer is responsible for
// reporting as an error.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID int64) error {
	owner, _, err := s.store.FindOrderOwner(ctx, orderID)
	if err != nil {
		return ErrUnknownOrder
	}
	if owner != userID {
		return ErrUnknownOrder
	}

	s.engine.CancelOrderByID(orderID)
	return nil
}

// ListOrders is a read-only pass-through to the durable store.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]store.OrderView, error) {
	return s.store.ListOrders(ctx, userID)
}
