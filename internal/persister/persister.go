// Package persister drains the matching engine's event channel into
// Postgres, one transaction per event. It is the only component that
// turns a matching decision into a durable mutation; the engine itself
// never touches the database.
package persister

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/saga-markets/dexbook/internal/matching"
	"github.com/saga-markets/dexbook/internal/store"
)

// Metrics is the subset of *metrics.Collector the persister reports
// through, narrowed to an interface so this package does not depend on
// internal/metrics.
type Metrics interface {
	RecordPersisterApplied(kind string)
}

// Persister is a single long-lived worker. It has no retry logic of its
// own: on any apply failure it rolls back and returns the error, which
// the Supervisor treats as this worker's death.
type Persister struct {
	db      *sql.DB
	events  matching.EventQueue
	log     zerolog.Logger
	metrics Metrics
}

// New builds a Persister reading off events and applying them via db.
// metrics may be nil.
func New(db *sql.DB, events matching.EventQueue, log zerolog.Logger, metrics Metrics) *Persister {
	return &Persister{db: db, events: events, log: log.With().Str("component", "persister").Logger(), metrics: metrics}
}

// Run drains events until ctx is cancelled or an apply fails. A
// cancelled context is a clean stop, not a failure; the Supervisor does
// not restart in that case.
func (p *Persister) Run(ctx context.Context) error {
	p.log.Info().Msg("persister starting")
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("persister stopping: context cancelled")
			return nil
		case event := <-p.events:
			if err := p.apply(ctx, event); err != nil {
				p.log.Error().Err(err).
					Str("event", event.Kind.String()).
					Int64("orderID", event.OrderID).
					Msg("failed to apply event, terminating worker")
				return err
			}
			if p.metrics != nil {
				p.metrics.RecordPersisterApplied(event.Kind.String())
			}
		}
	}
}

// apply opens one transaction per event: a failed apply rolls back
// cleanly and never commits a partial mutation.
func (p *Persister) apply(ctx context.Context, event matching.Event) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persister: begin: %w", err)
	}
	defer tx.Rollback()

	switch event.Kind {
	case matching.EventCancelled:
		err = applyCancelled(ctx, tx, event)
	case matching.EventComplete:
		err = applyComplete(ctx, tx, event)
	case matching.EventMatch:
		err = applyMatch(ctx, tx, event)
	default:
		err = fmt.Errorf("persister: unrecognized event kind: %v", event.Kind)
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persister: commit: %w", err)
	}
	return nil
}

// applyCancelled sets the order's status to cancelled and refunds the
// escrowed notional back to the owner's balance in the order's required
// currency.
func applyCancelled(ctx context.Context, tx *sql.Tx, event matching.Event) error {
	var userID int64
	var side string
	err := tx.QueryRowContext(ctx, `
		UPDATE orders SET status = $1 WHERE id = $2
		RETURNING user_id, side`, store.StatusCancelled, event.OrderID).Scan(&userID, &side)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("persister: cancelled event for unknown order %d", event.OrderID)
	}
	if err != nil {
		return fmt.Errorf("persister: update order status: %w", err)
	}

	currency := store.RequiredCurrencyForOrder(side)
	if _, err := tx.ExecContext(ctx, `
		UPDATE balances SET amount = amount + $1
		WHERE user_id = $2 AND currency = $3`,
		event.RemainingAmount, userID, currency); err != nil {
		return fmt.Errorf("persister: refund balance: %w", err)
	}
	return nil
}

// applyComplete sets the order's status to complete.
func applyComplete(ctx context.Context, tx *sql.Tx, event matching.Event) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1 WHERE id = $2`, store.StatusComplete, event.OrderID)
	if err != nil {
		return fmt.Errorf("persister: update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("persister: complete event for unknown order %d", event.OrderID)
	}
	return nil
}

// applyMatch inserts one trade row. Two EventMatch records are emitted
// per slice (symmetric pair), so two rows land here per fill. No balance
// mutation happens for the received currency; see DESIGN.md for why that
// gap is intentionally left open.
func applyMatch(ctx context.Context, tx *sql.Tx, event matching.Event) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO matches (order_id, matched_order_id, amount)
		VALUES ($1, $2, $3)`, event.OrderID, event.MatchedOrderID, event.Amount)
	if err != nil {
		return fmt.Errorf("persister: insert match: %w", err)
	}
	return nil
}
