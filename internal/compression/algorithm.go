// Package compression implements the payload codecs an object can be stored
// with. Every algorithm satisfies Decompress(a, Compress(a, x)) == x.
package compression

import (
	"fmt"

	"github.com/abduss/pinstore/internal/errkind"
)

// Algorithm names a compression codec as it appears on the wire.
type Algorithm string

const (
	// Passthrough stores the payload as is.
	Passthrough Algorithm = "passthrough"
	// Snappy uses the Snappy block format.
	Snappy Algorithm = "snappy"
	// LZ4 uses the LZ4 frame format.
	LZ4 Algorithm = "lz4"
	// ZSTD uses Zstandard.
	ZSTD Algorithm = "zstd"
	// S2 uses klauspost's S2 block format.
	S2 Algorithm = "s2"
)

// ErrUnsupportedAlgorithm is returned for unknown algorithm codes.
var ErrUnsupportedAlgorithm = fmt.Errorf("unsupported compression algorithm: %w", errkind.ErrInvalidInput)

// All lists every supported algorithm in a stable order.
func All() []Algorithm {
	return []Algorithm{Passthrough, Snappy, LZ4, ZSTD, S2}
}

// IsValid reports whether the algorithm is supported.
func (a Algorithm) IsValid() bool {
	switch a {
	case Passthrough, Snappy, LZ4, ZSTD, S2:
		return true
	default:
		return false
	}
}

func (a Algorithm) String() string {
	return string(a)
}

// Parse converts a wire code into an Algorithm. The empty string maps to
// Passthrough.
func Parse(s string) (Algorithm, error) {
	if s == "" {
		return Passthrough, nil
	}
	algo := Algorithm(s)
	if !algo.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
	return algo, nil
}
