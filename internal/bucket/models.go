package bucket

import (
	"fmt"
	"slices"

	"github.com/abduss/pinstore/internal/compression"
	"github.com/abduss/pinstore/internal/hashing"
	"github.com/abduss/pinstore/internal/pagination"
)

// Bucket is the single container of a pinstore state.
type Bucket struct {
	Name       string            `cbor:"name"`
	Config     Config            `cbor:"config"`
	Limits     Limits            `cbor:"limits"`
	Pagination pagination.Config `cbor:"pagination"`
	Stat       Stat              `cbor:"stat"`
}

// Config carries the immutable content settings of a bucket.
type Config struct {
	HashAlgorithm                 hashing.Algorithm       `cbor:"hash_algorithm"`
	AcceptedCompressionAlgorithms []compression.Algorithm `cbor:"accepted_compression_algorithms"`
}

// Accepts reports whether objects may be stored with algo.
func (c Config) Accepts(algo compression.Algorithm) bool {
	return slices.Contains(c.AcceptedCompressionAlgorithms, algo)
}

// Limits bounds the bucket content. A nil limit means unlimited.
type Limits struct {
	MaxTotalSize  *uint64 `cbor:"max_total_size,omitempty"`
	MaxObjects    *uint64 `cbor:"max_objects,omitempty"`
	MaxObjectSize *uint64 `cbor:"max_object_size,omitempty"`
	MaxObjectPins *uint64 `cbor:"max_object_pins,omitempty"`
}

// Validate rejects limits no object could ever satisfy consistently.
func (l Limits) Validate() error {
	if l.MaxObjectSize != nil && l.MaxTotalSize != nil && *l.MaxObjectSize > *l.MaxTotalSize {
		return fmt.Errorf("%w: max_object_size %d exceeds max_total_size %d", ErrInvalidLimits, *l.MaxObjectSize, *l.MaxTotalSize)
	}
	return nil
}

// CheckStore verifies a new object of raw size `size` fits. Checks run in a
// fixed order: object size, object count, total size.
func (l Limits) CheckStore(stat Stat, size uint64) error {
	if l.MaxObjectSize != nil && size > *l.MaxObjectSize {
		return fmt.Errorf("%w: %d > %d", ErrMaxObjectSizeExceeded, size, *l.MaxObjectSize)
	}
	if l.MaxObjects != nil && stat.ObjectCount+1 > *l.MaxObjects {
		return fmt.Errorf("%w: %d", ErrMaxObjectsExceeded, *l.MaxObjects)
	}
	if l.MaxTotalSize != nil && (stat.TotalSize+size < stat.TotalSize || stat.TotalSize+size > *l.MaxTotalSize) {
		return fmt.Errorf("%w: %d + %d > %d", ErrMaxTotalSizeExceeded, stat.TotalSize, size, *l.MaxTotalSize)
	}
	return nil
}

// CheckPin verifies one more pin fits on an object pinned pinCount times.
func (l Limits) CheckPin(pinCount uint64) error {
	if l.MaxObjectPins != nil && pinCount >= *l.MaxObjectPins {
		return fmt.Errorf("%w: %d", ErrMaxObjectPinsExceeded, *l.MaxObjectPins)
	}
	return nil
}

// Stat reflects aggregate object statistics for a bucket.
type Stat struct {
	ObjectCount         uint64 `cbor:"object_count"`
	TotalSize           uint64 `cbor:"total_size"`
	TotalCompressedSize uint64 `cbor:"total_compressed_size"`
}

// Usage is a signed change applied to Stat.
type Usage struct {
	Objects        int64
	Size           int64
	CompressedSize int64
}

func (s Stat) apply(u Usage) Stat {
	s.ObjectCount = addClamped(s.ObjectCount, u.Objects)
	s.TotalSize = addClamped(s.TotalSize, u.Size)
	s.TotalCompressedSize = addClamped(s.TotalCompressedSize, u.CompressedSize)
	return s
}

func addClamped(v uint64, delta int64) uint64 {
	if delta >= 0 {
		return v + uint64(delta)
	}
	d := uint64(-delta)
	if d > v {
		return 0
	}
	return v - d
}
