package bucket

import (
	"context"
	"errors"
	"fmt"

	"github.com/abduss/pinstore/internal/state"
)

var bucketKey = []byte("bucket")

// Repository persists the bucket record in the state.
type Repository struct{}

// NewRepository constructs a bucket repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Get loads the bucket.
func (r *Repository) Get(ctx context.Context, rd state.Reader) (Bucket, error) {
	b, err := state.Load[Bucket](ctx, rd, bucketKey)
	if err != nil {
		if errors.Is(err, state.ErrKeyNotFound) {
			return Bucket{}, ErrBucketNotFound
		}
		return Bucket{}, fmt.Errorf("get bucket: %w", err)
	}
	return b, nil
}

// Create stores the bucket record, refusing to overwrite an existing one.
func (r *Repository) Create(ctx context.Context, tx state.Tx, b Bucket) error {
	if _, err := tx.Get(ctx, bucketKey); err == nil {
		return ErrAlreadyInstantiated
	} else if !errors.Is(err, state.ErrKeyNotFound) {
		return fmt.Errorf("check bucket: %w", err)
	}
	if err := state.Save(ctx, tx, bucketKey, b); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// UpdateUsage applies a signed change to the bucket statistics.
func (r *Repository) UpdateUsage(ctx context.Context, tx state.Tx, usage Usage) (Stat, error) {
	b, err := r.Get(ctx, tx)
	if err != nil {
		return Stat{}, err
	}
	b.Stat = b.Stat.apply(usage)
	if err := state.Save(ctx, tx, bucketKey, b); err != nil {
		return Stat{}, fmt.Errorf("update usage: %w", err)
	}
	return b.Stat, nil
}
