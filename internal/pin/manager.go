// Package pin records which addresses keep an object alive. An object with
// at least one pin cannot be deleted.
package pin

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abduss/pinstore/internal/bucket"
	"github.com/abduss/pinstore/internal/object"
	"github.com/abduss/pinstore/internal/pagination"
	"github.com/abduss/pinstore/internal/state"
)

var pinPrefix = []byte("pin/")

func objectPinsPrefix(id string) []byte {
	key := append(append([]byte{}, pinPrefix...), id...)
	return append(key, '/')
}

func pinKey(id, address string) []byte {
	return append(objectPinsPrefix(id), address...)
}

type objectStore interface {
	Get(ctx context.Context, rd state.Reader, id string) (object.Object, error)
	Put(ctx context.Context, tx state.Tx, obj object.Object) error
}

type bucketStore interface {
	Get(ctx context.Context, rd state.Reader) (bucket.Bucket, error)
}

// Manager maintains pins and the pin counts cached on object metadata.
type Manager struct {
	objects objectStore
	buckets bucketStore
	logger  *zap.Logger
}

// NewManager constructs a pin manager.
func NewManager(objects objectStore, buckets bucketStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{objects: objects, buckets: buckets, logger: logger}
}

// HasPin reports whether address pins the object.
func (m *Manager) HasPin(ctx context.Context, rd state.Reader, id, address string) (bool, error) {
	if address == "" {
		return false, nil
	}
	_, err := rd.Get(ctx, pinKey(id, address))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, state.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("get pin: %w", err)
	}
}

// Pin makes address pin the object. It reports false when the pin already
// existed, in which case nothing changes.
func (m *Manager) Pin(ctx context.Context, tx state.Tx, id, address string) (bool, error) {
	if address == "" {
		return false, ErrInvalidAddress
	}
	obj, err := m.objects.Get(ctx, tx, id)
	if err != nil {
		return false, err
	}
	pinned, err := m.HasPin(ctx, tx, id, address)
	if err != nil || pinned {
		return false, err
	}

	b, err := m.buckets.Get(ctx, tx)
	if err != nil {
		return false, err
	}
	if err := b.Limits.CheckPin(obj.PinCount); err != nil {
		return false, err
	}

	if err := state.Save(ctx, tx, pinKey(id, address), Pin{ObjectID: id, Address: address}); err != nil {
		return false, fmt.Errorf("store pin: %w", err)
	}
	obj.PinCount++
	if err := m.objects.Put(ctx, tx, obj); err != nil {
		return false, err
	}

	m.logger.Debug("object pinned",
		zap.String("object_id", id),
		zap.String("address", address),
		zap.Uint64("pin_count", obj.PinCount),
	)
	return true, nil
}

// Unpin removes the pin of address on the object. It reports false when
// there was no such pin.
func (m *Manager) Unpin(ctx context.Context, tx state.Tx, id, address string) (bool, error) {
	obj, err := m.objects.Get(ctx, tx, id)
	if err != nil {
		return false, err
	}
	pinned, err := m.HasPin(ctx, tx, id, address)
	if err != nil || !pinned {
		return false, err
	}

	if err := tx.Delete(ctx, pinKey(id, address)); err != nil {
		return false, fmt.Errorf("delete pin: %w", err)
	}
	if obj.PinCount > 0 {
		obj.PinCount--
	}
	if err := m.objects.Put(ctx, tx, obj); err != nil {
		return false, err
	}

	m.logger.Debug("object unpinned",
		zap.String("object_id", id),
		zap.String("address", address),
		zap.Uint64("pin_count", obj.PinCount),
	)
	return true, nil
}

// List returns a page of the addresses pinning the object, in byte order.
func (m *Manager) List(ctx context.Context, rd state.Reader, id, cursor string, first *uint32) ([]string, pagination.PageInfo, error) {
	if _, err := m.objects.Get(ctx, rd, id); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	b, err := m.buckets.Get(ctx, rd)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	size, err := b.Pagination.PageSize(first)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return pagination.Collect(ctx, rd, objectPinsPrefix(id), cursor, size, func(suffix, _ []byte) (string, error) {
		return string(suffix), nil
	})
}
