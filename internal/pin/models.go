package pin

// Pin links an address to an object it keeps alive.
type Pin struct {
	ObjectID string `cbor:"object_id"`
	Address  string `cbor:"address"`
}
