package pin

import (
	"fmt"

	"github.com/abduss/pinstore/internal/errkind"
)

// ErrInvalidAddress is returned for empty pinning addresses.
var ErrInvalidAddress = fmt.Errorf("invalid address: %w", errkind.ErrInvalidInput)
