// Package pagination resolves page sizes and walks state scans one page at
// a time. Cursors are opaque to callers: the base64url encoding of the last
// returned item's key suffix, so no iterator is held between calls.
package pagination

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/abduss/pinstore/internal/errkind"
	"github.com/abduss/pinstore/internal/state"
)

const (
	// MaxPageSizeLimit is the largest max_page_size a bucket may configure.
	MaxPageSizeLimit uint32 = math.MaxUint32 - 1
	// DefaultMaxPageSize applies when max_page_size is unset.
	DefaultMaxPageSize uint32 = 30
	// DefaultPageSize applies when default_page_size is unset.
	DefaultPageSize uint32 = 10
)

var (
	// ErrInvalidConfig is returned for out-of-range pagination settings.
	ErrInvalidConfig = fmt.Errorf("invalid pagination config: %w", errkind.ErrInvalidInput)
	// ErrPageSizeExceeded is returned when `first` is above max_page_size.
	ErrPageSizeExceeded = fmt.Errorf("requested page size exceeds maximum allowed: %w", errkind.ErrInvalidInput)
	// ErrInvalidCursor is returned for cursors this package did not produce.
	ErrInvalidCursor = fmt.Errorf("invalid cursor: %w", errkind.ErrInvalidInput)
)

// Config carries the page size bounds of a bucket.
type Config struct {
	MaxPageSize     uint32 `cbor:"max_page_size"`
	DefaultPageSize uint32 `cbor:"default_page_size"`
}

// NewConfig fills unset values with defaults and validates the result.
func NewConfig(maxPageSize, defaultPageSize *uint32) (Config, error) {
	cfg := Config{MaxPageSize: DefaultMaxPageSize, DefaultPageSize: DefaultPageSize}
	if maxPageSize != nil {
		cfg.MaxPageSize = *maxPageSize
	}
	if defaultPageSize != nil {
		cfg.DefaultPageSize = *defaultPageSize
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the bounds.
func (c Config) Validate() error {
	if c.MaxPageSize > MaxPageSizeLimit {
		return fmt.Errorf("%w: max_page_size cannot exceed %d", ErrInvalidConfig, MaxPageSizeLimit)
	}
	if c.DefaultPageSize == 0 {
		return fmt.Errorf("%w: default_page_size must be positive", ErrInvalidConfig)
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("%w: default_page_size cannot exceed max_page_size", ErrInvalidConfig)
	}
	return nil
}

// PageSize resolves the requested page size.
func (c Config) PageSize(first *uint32) (uint32, error) {
	if first == nil {
		return c.DefaultPageSize, nil
	}
	if *first > c.MaxPageSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrPageSizeExceeded, *first, c.MaxPageSize)
	}
	return *first, nil
}

// PageInfo describes where a page ends.
type PageInfo struct {
	HasNextPage bool
	Cursor      string
}

// EncodeCursor wraps a key suffix into an opaque cursor.
func EncodeCursor(suffix []byte) string {
	return base64.RawURLEncoding.EncodeToString(suffix)
}

// DecodeCursor unwraps a cursor. The empty cursor means "from the start".
func DecodeCursor(cursor string) ([]byte, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidCursor
	}
	return raw, nil
}

// Collect reads one page of the entries under prefix, starting after the
// cursor. It reads at most size+1 entries.
func Collect[T any](ctx context.Context, r state.Reader, prefix []byte, cursor string, size uint32, decode func(suffix, value []byte) (T, error)) ([]T, PageInfo, error) {
	suffix, err := DecodeCursor(cursor)
	if err != nil {
		return nil, PageInfo{}, err
	}
	var after []byte
	if suffix != nil {
		after = append(bytes.Clone(prefix), suffix...)
	}

	items := make([]T, 0, min(size, 64))
	var info PageInfo
	if size == 0 {
		info.Cursor = cursor
	}
	var lastSuffix []byte

	err = r.Scan(ctx, prefix, after, func(key, value []byte) (bool, error) {
		if uint32(len(items)) >= size {
			info.HasNextPage = true
			return false, nil
		}
		itemSuffix := key[len(prefix):]
		item, err := decode(itemSuffix, value)
		if err != nil {
			return false, err
		}
		items = append(items, item)
		lastSuffix = itemSuffix
		return true, nil
	})
	if err != nil {
		return nil, PageInfo{}, err
	}

	if lastSuffix != nil {
		info.Cursor = EncodeCursor(lastSuffix)
	}
	return items, info, nil
}
