package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var activitySchema = []string{
	`CREATE TABLE IF NOT EXISTS activity (
		id         uuid PRIMARY KEY,
		account    text NOT NULL,
		kind       text NOT NULL,
		digest     text NOT NULL,
		target     text NOT NULL,
		object_id  text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS activity_account_created_idx ON activity (account, created_at DESC)`,
}

// EnsureActivitySchema creates the activity table and its index if missing.
// Safe to call on every start.
func EnsureActivitySchema(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range activitySchema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
