package compression

import "fmt"

// Compress encodes data with the given algorithm.
func Compress(algo Algorithm, data []byte) ([]byte, error) {
	switch algo {
	case Passthrough:
		return data, nil
	case Snappy:
		return compressSnappy(data), nil
	case LZ4:
		return compressLZ4(data)
	case ZSTD:
		return compressZSTD(data), nil
	case S2:
		return compressS2(data), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(algo))
	}
}

// Decompress reverses Compress.
func Decompress(algo Algorithm, data []byte) ([]byte, error) {
	switch algo {
	case Passthrough:
		return data, nil
	case Snappy:
		return decompressSnappy(data)
	case LZ4:
		return decompressLZ4(data)
	case ZSTD:
		return decompressZSTD(data)
	case S2:
		return decompressS2(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(algo))
	}
}

// Ratio returns original/compressed, or 1 when compression did not shrink
// the payload.
func Ratio(originalSize, compressedSize int) float64 {
	if compressedSize <= 0 || compressedSize >= originalSize {
		return 1.0
	}
	return float64(originalSize) / float64(compressedSize)
}
