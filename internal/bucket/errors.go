package bucket

import (
	"fmt"

	"github.com/abduss/pinstore/internal/errkind"
)

var (
	// ErrBucketNotFound indicates the state has not been instantiated yet.
	ErrBucketNotFound = fmt.Errorf("bucket not found: %w", errkind.ErrNotFound)
	// ErrAlreadyInstantiated is returned when instantiating a second time.
	ErrAlreadyInstantiated = fmt.Errorf("bucket already instantiated: %w", errkind.ErrConflict)
	// ErrEmptyName is returned when the bucket name is empty once whitespace is removed.
	ErrEmptyName = fmt.Errorf("bucket name could not be empty: %w", errkind.ErrInvalidInput)
	// ErrInvalidLimits is returned for contradictory limits.
	ErrInvalidLimits = fmt.Errorf("invalid bucket limits: %w", errkind.ErrInvalidInput)
	// ErrInvalidConfig is returned for an unusable bucket configuration.
	ErrInvalidConfig = fmt.Errorf("invalid bucket config: %w", errkind.ErrInvalidInput)
	// ErrCompressionNotAccepted is returned when the bucket refuses an algorithm.
	ErrCompressionNotAccepted = fmt.Errorf("compression algorithm not accepted by bucket: %w", errkind.ErrInvalidInput)
	// ErrMaxObjectSizeExceeded is returned when a single object is larger than allowed.
	ErrMaxObjectSizeExceeded = fmt.Errorf("max object size %w", errkind.ErrLimitExceeded)
	// ErrMaxObjectsExceeded is returned when the bucket already holds max_objects.
	ErrMaxObjectsExceeded = fmt.Errorf("max objects %w", errkind.ErrLimitExceeded)
	// ErrMaxTotalSizeExceeded is returned when a store would pass max_total_size.
	ErrMaxTotalSizeExceeded = fmt.Errorf("max total size %w", errkind.ErrLimitExceeded)
	// ErrMaxObjectPinsExceeded is returned when an object already has max_object_pins pins.
	ErrMaxObjectPinsExceeded = fmt.Errorf("max object pins %w", errkind.ErrLimitExceeded)
)
