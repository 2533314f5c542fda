// Package hashing derives object identifiers from object content.
package hashing

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/abduss/pinstore/internal/errkind"
	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
)

// Algorithm names a content hash function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
	BLAKE3 Algorithm = "blake3"
)

// ErrUnsupportedAlgorithm is returned for unknown hash algorithms.
var ErrUnsupportedAlgorithm = fmt.Errorf("unsupported hash algorithm: %w", errkind.ErrInvalidInput)

// Parse converts a wire code into an Algorithm; the empty string selects SHA256.
func Parse(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return SHA256, nil
	case SHA256, SHA512, BLAKE3:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// Sum returns the lowercase hex digest of data.
func Sum(algo Algorithm, data []byte) (string, error) {
	switch algo {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case SHA512:
		sum := sha512.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	case BLAKE3:
		sum := blake3.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(algo))
	}
}
