package gateway

import (
	"fmt"

	"github.com/abduss/pinstore/internal/errkind"
)

var (
	// ErrInvalidMessage is returned for tagged unions with zero or several variants set.
	ErrInvalidMessage = fmt.Errorf("invalid message: %w", errkind.ErrInvalidInput)
	// ErrMissingSender is returned when an execute carries no sender.
	ErrMissingSender = fmt.Errorf("missing sender: %w", errkind.ErrUnauthorized)
)
