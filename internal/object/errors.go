package object

import (
	"fmt"

	"github.com/abduss/pinstore/internal/errkind"
)

var (
	// ErrObjectNotFound signals that the object could not be located.
	ErrObjectNotFound = fmt.Errorf("object not found: %w", errkind.ErrNotFound)
	// ErrObjectAlreadyStored is returned when the same content is stored twice.
	ErrObjectAlreadyStored = fmt.Errorf("object already stored: %w", errkind.ErrConflict)
	// ErrInvalidCompression is returned for unknown or refused compression algorithms.
	ErrInvalidCompression = fmt.Errorf("invalid compression algorithm: %w", errkind.ErrInvalidInput)
	// ErrOwnerMismatch is returned when a store names an owner other than the sender.
	ErrOwnerMismatch = fmt.Errorf("owner must be the sender: %w", errkind.ErrUnauthorized)
)
