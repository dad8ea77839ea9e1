package store

import "context"

// schema is the durable schema: users, api_keys, orders, matches and
// balances, with the uniqueness invariant on (balances.user_id,
// balances.currency). Kept as plain idempotent DDL rather than a
// migration framework; this is a single-service schema, not one that
// needs versioned rollout.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS api_keys (
	id      BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	key     TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS orders (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	side       TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
	amount     NUMERIC(10, 6) NOT NULL,
	price      NUMERIC(10, 6) NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('pending', 'complete', 'cancelled')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	id               BIGSERIAL PRIMARY KEY,
	order_id         BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	matched_order_id BIGINT NOT NULL,
	amount           NUMERIC(10, 6) NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
	id       BIGSERIAL PRIMARY KEY,
	user_id  BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	currency TEXT NOT NULL,
	amount   NUMERIC(10, 6) NOT NULL,
	UNIQUE (user_id, currency)
);
`

// Migrate creates the schema if it does not already exist. Safe to call
// on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
