package auth

import (
	"errors"
	"fmt"

	"github.com/abduss/pinstore/internal/errkind"
)

var (
	// ErrUnauthorized represents missing or invalid authentication tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidAddress is returned for addresses that cannot identify a sender.
	ErrInvalidAddress = fmt.Errorf("invalid address: %w", errkind.ErrInvalidInput)
)
