package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saga-markets/dexbook/internal/decimal"
)

// seedUserCount, seedEURBalance and seedETHBalance define the demo
// fixture: users user-1..9, one api key per user (key = "user{i}"), and
// opening balances of 5000 EUR / 50 ETH each.
const seedUserCount = 9

var (
	seedEURBalance = decimal.FromInt(5000)
	seedETHBalance = decimal.FromInt(50)
)

// Seed creates the demo users, api keys and opening balances if they do
// not already exist. Idempotent, like the original.
func (s *Store) Seed(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := 1; i <= seedUserCount; i++ {
		name := fmt.Sprintf("user-%d", i)
		var userID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, name).Scan(&userID)
		if err != nil {
			return fmt.Errorf("store: seed user %s: %w", name, err)
		}

		key := fmt.Sprintf("user%d", i)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO api_keys (user_id, key) VALUES ($1, $2)
			ON CONFLICT (key) DO NOTHING`, userID, key); err != nil {
			return fmt.Errorf("store: seed api key for %s: %w", name, err)
		}

		if err := seedBalance(ctx, tx, userID, "EUR", seedEURBalance); err != nil {
			return err
		}
		if err := seedBalance(ctx, tx, userID, "ETH", seedETHBalance); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func seedBalance(ctx context.Context, tx *sql.Tx, userID int64, currency string, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, currency, amount) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, currency) DO NOTHING`, userID, currency, amount)
	if err != nil {
		return fmt.Errorf("store: seed %s balance for user %d: %w", currency, userID, err)
	}
	return nil
}
