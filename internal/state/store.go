// Package state provides the transactional, ordered key/value state every
// pinstore component persists into. A Store hands out read snapshots (View)
// and serialized write transactions (Update); an Update whose callback
// returns an error leaves the state untouched.
package state

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get for missing keys.
var ErrKeyNotFound = errors.New("key not found")

// ScanFunc receives entries in ascending key order. Returning false stops
// the scan. Key and value are owned by the callee.
type ScanFunc func(key, value []byte) (bool, error)

// Reader is a consistent read view over the state.
type Reader interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	// Scan visits keys starting with prefix that sort strictly after
	// `after` (when non-nil), in ascending byte order.
	Scan(ctx context.Context, prefix, after []byte, fn ScanFunc) error
}

// Tx is a write transaction.
type Tx interface {
	Reader
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
}

// Store is a transactional state backend.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Load decodes the value stored under key into a T.
func Load[T any](ctx context.Context, r Reader, key []byte) (T, error) {
	var out T
	raw, err := r.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Save encodes v and stores it under key.
func Save(ctx context.Context, tx Tx, key []byte, v any) error {
	raw, err := Marshal(v)
	if err != nil {
		return err
	}
	return tx.Put(ctx, key, raw)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
