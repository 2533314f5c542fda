package object

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/abduss/pinstore/internal/pagination"
	"github.com/abduss/pinstore/internal/state"
)

var (
	objectPrefix = []byte("object/")
	dataPrefix   = []byte("data/")
	ownerPrefix  = []byte("owner/")
	// present marks index entries whose key carries all the information.
	present = []byte{1}
)

func objectKey(id string) []byte {
	return append(append([]byte{}, objectPrefix...), id...)
}

func dataKey(id string) []byte {
	return append(append([]byte{}, dataPrefix...), id...)
}

// ownerIndexPrefix hex encodes the owner so that no address can extend
// another one's prefix.
func ownerIndexPrefix(owner string) []byte {
	key := append(append([]byte{}, ownerPrefix...), hex.EncodeToString([]byte(owner))...)
	return append(key, '/')
}

// validID rejects ids that could not have been produced by a content hash,
// which also keeps them from escaping their key prefix.
func validID(id string) bool {
	if id == "" || len(id)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// Repository provides access to object metadata and payloads in the state.
type Repository struct{}

// NewRepository builds a new object repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Get fetches the metadata of a single object.
func (r *Repository) Get(ctx context.Context, rd state.Reader, id string) (Object, error) {
	if !validID(id) {
		return Object{}, ErrObjectNotFound
	}
	obj, err := state.Load[Object](ctx, rd, objectKey(id))
	if err != nil {
		if errors.Is(err, state.ErrKeyNotFound) {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("get object metadata: %w", err)
	}
	return obj, nil
}

// Exists reports whether an object with the id is stored.
func (r *Repository) Exists(ctx context.Context, rd state.Reader, id string) (bool, error) {
	_, err := r.Get(ctx, rd, id)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Create inserts metadata, payload and owner index entry for a new object.
func (r *Repository) Create(ctx context.Context, tx state.Tx, obj Object, payload []byte) error {
	if err := r.Put(ctx, tx, obj); err != nil {
		return err
	}
	if err := tx.Put(ctx, dataKey(obj.ID), payload); err != nil {
		return fmt.Errorf("store object data: %w", err)
	}
	if err := tx.Put(ctx, append(ownerIndexPrefix(obj.Owner), obj.ID...), present); err != nil {
		return fmt.Errorf("index object owner: %w", err)
	}
	return nil
}

// Put overwrites the metadata of an object.
func (r *Repository) Put(ctx context.Context, tx state.Tx, obj Object) error {
	if err := state.Save(ctx, tx, objectKey(obj.ID), obj); err != nil {
		return fmt.Errorf("store object metadata: %w", err)
	}
	return nil
}

// Delete removes everything stored for the object.
func (r *Repository) Delete(ctx context.Context, tx state.Tx, obj Object) error {
	if err := tx.Delete(ctx, objectKey(obj.ID)); err != nil {
		return fmt.Errorf("delete object metadata: %w", err)
	}
	if err := tx.Delete(ctx, dataKey(obj.ID)); err != nil {
		return fmt.Errorf("delete object data: %w", err)
	}
	if err := tx.Delete(ctx, append(ownerIndexPrefix(obj.Owner), obj.ID...)); err != nil {
		return fmt.Errorf("delete object owner index: %w", err)
	}
	return nil
}

// Data returns the stored (compressed) payload of an object.
func (r *Repository) Data(ctx context.Context, rd state.Reader, id string) ([]byte, error) {
	if !validID(id) {
		return nil, ErrObjectNotFound
	}
	payload, err := rd.Get(ctx, dataKey(id))
	if err != nil {
		if errors.Is(err, state.ErrKeyNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object data: %w", err)
	}
	return payload, nil
}

// List returns one page of objects ordered by id, optionally restricted to
// an owner.
func (r *Repository) List(ctx context.Context, rd state.Reader, owner, cursor string, size uint32) ([]Object, pagination.PageInfo, error) {
	if owner == "" {
		return pagination.Collect(ctx, rd, objectPrefix, cursor, size, func(_, value []byte) (Object, error) {
			var obj Object
			if err := state.Unmarshal(value, &obj); err != nil {
				return Object{}, fmt.Errorf("scan object metadata: %w", err)
			}
			return obj, nil
		})
	}

	return pagination.Collect(ctx, rd, ownerIndexPrefix(owner), cursor, size, func(suffix, _ []byte) (Object, error) {
		obj, err := r.Get(ctx, rd, string(suffix))
		if err != nil {
			return Object{}, fmt.Errorf("resolve owner index %s: %w", suffix, err)
		}
		return obj, nil
	})
}
