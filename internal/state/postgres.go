package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// writerLockKey serializes writers across every process sharing the table.
	writerLockKey int64 = 0x70696e73746f7265
	scanBatchSize       = 128
	kvSchema            = `
CREATE TABLE IF NOT EXISTS pinstore_kv (
    key   BYTEA PRIMARY KEY,
    value BYTEA NOT NULL
);`
)

// Postgres is a Store persisted in a single PostgreSQL table. Updates run
// in serializable transactions holding a transaction-scoped advisory lock.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres prepares the key/value table on the pool.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, kvSchema); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// View runs fn in a read-only repeatable-read transaction.
func (p *Postgres) View(ctx context.Context, fn func(Reader) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update runs fn in a serializable transaction, committing on success.
func (p *Postgres) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin write transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1);`, writerLockKey); err != nil {
		return fmt.Errorf("acquire writer lock: %w", err)
	}
	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit write transaction: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close is a no-op: the pool is owned by the caller.
func (p *Postgres) Close() error {
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTx struct {
	q querier
}

type kvRow struct {
	key   []byte
	value []byte
}

func (t *pgTx) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := t.q.QueryRow(ctx, `SELECT value FROM pinstore_kv WHERE key = $1;`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get state key: %w", err)
	}
	return value, nil
}

// Scan reads in bounded batches so fn may issue further statements on the
// same transaction between batches.
func (t *pgTx) Scan(ctx context.Context, prefix, after []byte, fn ScanFunc) error {
	query := `
SELECT key, value
FROM pinstore_kv
WHERE key >= $1
  AND ($2::bytea IS NULL OR key > $2)
  AND ($3::bytea IS NULL OR key < $3)
ORDER BY key
LIMIT $4;`

	if prefix == nil {
		prefix = []byte{}
	}
	upper := prefixEnd(prefix)
	cursor := after
	for {
		rows, err := t.q.Query(ctx, query, prefix, cursor, upper, scanBatchSize)
		if err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		batch, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (kvRow, error) {
			var r kvRow
			err := row.Scan(&r.key, &r.value)
			return r, err
		})
		if err != nil {
			return fmt.Errorf("collect state rows: %w", err)
		}

		for _, r := range batch {
			cont, err := fn(r.key, r.value)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		if len(batch) < scanBatchSize {
			return nil
		}
		cursor = batch[len(batch)-1].key
	}
}

func (t *pgTx) Put(ctx context.Context, key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	query := `
INSERT INTO pinstore_kv (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;`

	if _, err := t.q.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("put state key: %w", err)
	}
	return nil
}

func (t *pgTx) Delete(ctx context.Context, key []byte) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM pinstore_kv WHERE key = $1;`, key); err != nil {
		return fmt.Errorf("delete state key: %w", err)
	}
	return nil
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, or nil when no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
