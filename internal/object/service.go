package object

import (
	"context"
	"fmt"

	"github.com/abduss/pinstore/internal/bucket"
	"github.com/abduss/pinstore/internal/compression"
	"github.com/abduss/pinstore/internal/hashing"
	"github.com/abduss/pinstore/internal/pagination"
	"github.com/abduss/pinstore/internal/state"
)

type metadataStore interface {
	Get(ctx context.Context, rd state.Reader, id string) (Object, error)
	Exists(ctx context.Context, rd state.Reader, id string) (bool, error)
	Create(ctx context.Context, tx state.Tx, obj Object, payload []byte) error
	Delete(ctx context.Context, tx state.Tx, obj Object) error
	Data(ctx context.Context, rd state.Reader, id string) ([]byte, error)
	List(ctx context.Context, rd state.Reader, owner, cursor string, size uint32) ([]Object, pagination.PageInfo, error)
}

type bucketStore interface {
	Get(ctx context.Context, rd state.Reader) (bucket.Bucket, error)
	UpdateUsage(ctx context.Context, tx state.Tx, usage bucket.Usage) (bucket.Stat, error)
}

// pinner is the part of the pin manager objects depend on. Pin state is the
// only authority on whether an object may be deleted.
type pinner interface {
	Pin(ctx context.Context, tx state.Tx, id, address string) (bool, error)
	Unpin(ctx context.Context, tx state.Tx, id, address string) (bool, error)
	HasPin(ctx context.Context, rd state.Reader, id, address string) (bool, error)
}

// Service manages the object lifecycle.
type Service struct {
	repo    metadataStore
	buckets bucketStore
	pins    pinner
}

// NewService constructs an object service.
func NewService(repo metadataStore, buckets bucketStore, pins pinner) *Service {
	return &Service{repo: repo, buckets: buckets, pins: pins}
}

// StoreInput carries a store request. Sender is the authenticated caller;
// Owner is the optional owner named in the message.
type StoreInput struct {
	Sender      string
	Owner       *string
	Data        []byte
	Compression string
	Pin         bool
}

// ForgetResult reports the outcome of a forget.
type ForgetResult struct {
	Object   Object
	Unpinned bool
	Deleted  bool
}

// ListInput selects a page of objects.
type ListInput struct {
	Owner string
	First *uint32
	After string
}

// Store compresses and persists a new object owned by the sender.
func (s *Service) Store(ctx context.Context, tx state.Tx, in StoreInput) (Object, error) {
	b, err := s.buckets.Get(ctx, tx)
	if err != nil {
		return Object{}, err
	}

	if in.Owner != nil && *in.Owner != in.Sender {
		return Object{}, ErrOwnerMismatch
	}

	algo, err := compression.Parse(in.Compression)
	if err != nil {
		return Object{}, fmt.Errorf("%w: %w", ErrInvalidCompression, err)
	}
	if !b.Config.Accepts(algo) {
		return Object{}, fmt.Errorf("%w: %w: %s", ErrInvalidCompression, bucket.ErrCompressionNotAccepted, algo)
	}

	id, err := hashing.Sum(b.Config.HashAlgorithm, in.Data)
	if err != nil {
		return Object{}, err
	}
	exists, err := s.repo.Exists(ctx, tx, id)
	if err != nil {
		return Object{}, err
	}
	if exists {
		return Object{}, fmt.Errorf("%w: %s", ErrObjectAlreadyStored, id)
	}

	size := uint64(len(in.Data))
	if err := b.Limits.CheckStore(b.Stat, size); err != nil {
		return Object{}, err
	}

	payload, err := compression.Compress(algo, in.Data)
	if err != nil {
		return Object{}, fmt.Errorf("compress object: %w", err)
	}

	obj := Object{
		ID:                   id,
		Owner:                in.Sender,
		Size:                 size,
		CompressedSize:       uint64(len(payload)),
		CompressionAlgorithm: algo,
	}
	if err := s.repo.Create(ctx, tx, obj, payload); err != nil {
		return Object{}, err
	}
	if _, err := s.buckets.UpdateUsage(ctx, tx, bucket.Usage{
		Objects:        1,
		Size:           int64(obj.Size),
		CompressedSize: int64(obj.CompressedSize),
	}); err != nil {
		return Object{}, err
	}

	if in.Pin {
		if _, err := s.pins.Pin(ctx, tx, id, in.Sender); err != nil {
			return Object{}, err
		}
		return s.repo.Get(ctx, tx, id)
	}
	return obj, nil
}

// Forget drops the sender's pin, if any, and deletes the object once no pin
// remains. Forgetting an object the sender never pinned only runs the
// deletion check.
func (s *Service) Forget(ctx context.Context, tx state.Tx, id, sender string) (ForgetResult, error) {
	obj, err := s.repo.Get(ctx, tx, id)
	if err != nil {
		return ForgetResult{}, err
	}

	pinned, err := s.pins.HasPin(ctx, tx, id, sender)
	if err != nil {
		return ForgetResult{}, err
	}
	var result ForgetResult
	if pinned {
		if _, err := s.pins.Unpin(ctx, tx, id, sender); err != nil {
			return ForgetResult{}, err
		}
		result.Unpinned = true
		if obj, err = s.repo.Get(ctx, tx, id); err != nil {
			return ForgetResult{}, err
		}
	}
	result.Object = obj

	if obj.IsPinned() {
		return result, nil
	}

	if err := s.repo.Delete(ctx, tx, obj); err != nil {
		return ForgetResult{}, err
	}
	if _, err := s.buckets.UpdateUsage(ctx, tx, bucket.Usage{
		Objects:        -1,
		Size:           -int64(obj.Size),
		CompressedSize: -int64(obj.CompressedSize),
	}); err != nil {
		return ForgetResult{}, err
	}
	result.Deleted = true
	return result, nil
}

// Get returns the metadata of an object.
func (s *Service) Get(ctx context.Context, rd state.Reader, id string) (Object, error) {
	return s.repo.Get(ctx, rd, id)
}

// Data returns the decompressed content of an object.
func (s *Service) Data(ctx context.Context, rd state.Reader, id string) ([]byte, error) {
	obj, err := s.repo.Get(ctx, rd, id)
	if err != nil {
		return nil, err
	}
	payload, err := s.repo.Data(ctx, rd, id)
	if err != nil {
		return nil, err
	}
	data, err := compression.Decompress(obj.CompressionAlgorithm, payload)
	if err != nil {
		return nil, fmt.Errorf("decompress object %s: %w", id, err)
	}
	return data, nil
}

// List returns a page of objects ordered by id.
func (s *Service) List(ctx context.Context, rd state.Reader, in ListInput) ([]Object, pagination.PageInfo, error) {
	b, err := s.buckets.Get(ctx, rd)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	size, err := b.Pagination.PageSize(in.First)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return s.repo.List(ctx, rd, in.Owner, in.After, size)
}
