package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents in a jsonb column.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

// OpenPostgres connects to dsn, checks the connection and creates table when
// missing.
func OpenPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	p := &Postgres{pool: pool, table: table}
	if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		doc JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id))`, table)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating table %s: %w", table, err)
	}
	return p, nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE collection = $1 AND id = $2`, p.table),
		collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (p *Postgres) Set(ctx context.Context, collection, id string, doc Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	return upsert(ctx, p.pool, p.table, collection, id, data)
}

// Merge reads, patches and writes the document in one transaction holding
// the row lock.
func (p *Postgres) Merge(ctx context.Context, collection, id string, patch Document) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		current := Document{}
		var data []byte
		err := tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT doc FROM %s WHERE collection = $1 AND id = $2 FOR UPDATE`, p.table),
			collection, id).Scan(&data)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return err
		default:
			if current, err = decode(data); err != nil {
				return err
			}
		}

		merged, err := encode(MergePatch(current, patch))
		if err != nil {
			return err
		}
		return upsert(ctx, tx, p.table, collection, id, merged)
	})
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := p.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND id = $2`, p.table),
		collection, id)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsert(ctx context.Context, db execer, table, collection, id string, data []byte) error {
	_, err := db.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (collection, id, doc) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`, table),
		collection, id, string(data))
	return err
}
