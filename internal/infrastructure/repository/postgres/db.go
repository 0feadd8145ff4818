package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockID = int64(2026101501)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS tour_agents (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	company_name TEXT
);

CREATE TABLE IF NOT EXISTS tours (
	id BIGSERIAL PRIMARY KEY,
	agent_id BIGINT NOT NULL REFERENCES tour_agents(id),
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	destination TEXT NOT NULL,
	hotel_name TEXT NOT NULL DEFAULT '',
	price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	visa_required BOOLEAN NOT NULL DEFAULT FALSE,
	meal_plan TEXT NOT NULL,
	flight_type TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	CHECK (end_date > start_date)
);

CREATE INDEX IF NOT EXISTS idx_tours_active_created ON tours(is_active, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tours_price ON tours(price_cents);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_updated ON conversations(user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	sender TEXT NOT NULL,
	content TEXT NOT NULL,
	recommended_tour_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL
);

-- seq orders messages that share a timestamp.
ALTER TABLE chat_messages ADD COLUMN IF NOT EXISTS seq BIGSERIAL;

CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation_seq ON chat_messages(conversation_id, created_at, seq);

CREATE TABLE IF NOT EXISTS tour_recommendation_stats (
	tour_id BIGINT PRIMARY KEY,
	times_recommended BIGINT NOT NULL DEFAULT 0,
	last_recommended_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates every table used by the api, worker and seed binaries.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker/seed startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
