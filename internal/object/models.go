package object

import "github.com/abduss/pinstore/internal/compression"

// Object is the metadata of a stored content blob. Its compressed payload
// is kept separately under the same id.
type Object struct {
	ID                   string                `cbor:"id"`
	Owner                string                `cbor:"owner"`
	Size                 uint64                `cbor:"size"`
	CompressedSize       uint64                `cbor:"compressed_size"`
	CompressionAlgorithm compression.Algorithm `cbor:"compression_algorithm"`
	PinCount             uint64                `cbor:"pin_count"`
}

// IsPinned reports whether at least one address pins the object.
func (o Object) IsPinned() bool {
	return o.PinCount > 0
}
