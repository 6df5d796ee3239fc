package postgres

import (
	"context"

	"github.com/geocoder89/suiticket/internal/domain/activity"
	"github.com/geocoder89/suiticket/internal/observability"
	"github.com/geocoder89/suiticket/internal/utils"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema:
//
//	CREATE TABLE activity (
//	  id         uuid PRIMARY KEY,
//	  account    text NOT NULL,
//	  kind       text NOT NULL,
//	  digest     text NOT NULL,
//	  target     text NOT NULL,
//	  object_id  text NOT NULL DEFAULT '',
//	  created_at timestamptz NOT NULL
//	);
//	CREATE INDEX activity_account_created_idx ON activity (account, created_at DESC);
type ActivityRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewActivityRepo(pool *pgxpool.Pool, prom *observability.Prom) *ActivityRepo {
	return &ActivityRepo{pool: pool, prom: prom}
}

func (r *ActivityRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ActivityRepo) Create(ctx context.Context, req activity.CreateRequest) (activity.Record, error) {
	rec := activity.New(req)

	err := r.observe("activity.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO activity(id, account, kind, digest, target, object_id, created_at) VALUES($1,$2,$3,$4,$5,$6,$7)`,
			rec.ID, rec.Account, string(rec.Kind), rec.Digest, rec.Target, rec.ObjectID, rec.CreatedAt)
		return err
	})

	if err != nil {
		return activity.Record{}, err
	}

	return rec, nil
}

func (r *ActivityRepo) ListByAccount(ctx context.Context, account string, limit int, after *utils.ActivityCursor) ([]activity.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, account, kind, digest, target, object_id, created_at
		FROM activity
		WHERE account = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	args := []any{account, limit}

	if after != nil {
		query = `SELECT id, account, kind, digest, target, object_id, created_at
		FROM activity
		WHERE account = $1 AND (created_at, id) < ($3, $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
		args = append(args, after.CreatedAt, after.ID)
	}

	out := make([]activity.Record, 0, limit)

	err := r.observe("activity.list_by_account", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec activity.Record
			var kind string

			if err := rows.Scan(&rec.ID, &rec.Account, &kind, &rec.Digest, &rec.Target, &rec.ObjectID, &rec.CreatedAt); err != nil {
				return err
			}
			rec.Kind = activity.Kind(kind)
			out = append(out, rec)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ActivityRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
