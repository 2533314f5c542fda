package gateway

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abduss/pinstore/internal/bucket"
	"github.com/abduss/pinstore/internal/object"
	"github.com/abduss/pinstore/internal/pagination"
)

// Uint64 travels as a decimal string so that values above 2^53 survive
// JSON clients. Plain numbers are accepted on input.
type Uint64 uint64

// MarshalJSON implements json.Marshaler.
func (u Uint64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(u), 10))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Uint64) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 %s", data)
	}
	*u = Uint64(v)
	return nil
}

func toUint64(u *Uint64) *uint64 {
	if u == nil {
		return nil
	}
	v := uint64(*u)
	return &v
}

func fromUint64(v *uint64) *Uint64 {
	if v == nil {
		return nil
	}
	u := Uint64(*v)
	return &u
}

// BucketConfigMsg is the optional content configuration of a bucket.
type BucketConfigMsg struct {
	HashAlgorithm                 string   `json:"hash_algorithm,omitempty"`
	AcceptedCompressionAlgorithms []string `json:"accepted_compression_algorithms,omitempty"`
}

// BucketLimits bounds a bucket. Absent values are unlimited.
type BucketLimits struct {
	MaxTotalSize  *Uint64 `json:"max_total_size,omitempty"`
	MaxObjects    *Uint64 `json:"max_objects,omitempty"`
	MaxObjectSize *Uint64 `json:"max_object_size,omitempty"`
	MaxObjectPins *Uint64 `json:"max_object_pins,omitempty"`
}

// PaginationMsg carries optional page size bounds.
type PaginationMsg struct {
	MaxPageSize     *uint32 `json:"max_page_size,omitempty"`
	DefaultPageSize *uint32 `json:"default_page_size,omitempty"`
}

// InstantiateMsg creates the bucket.
type InstantiateMsg struct {
	Bucket     string           `json:"bucket"`
	Config     *BucketConfigMsg `json:"config,omitempty"`
	Limits     BucketLimits     `json:"limits"`
	Pagination *PaginationMsg   `json:"pagination,omitempty"`
}

// Input converts the message for the bucket service.
func (m InstantiateMsg) Input() bucket.InstantiateInput {
	in := bucket.InstantiateInput{
		Name: m.Bucket,
		Limits: bucket.Limits{
			MaxTotalSize:  toUint64(m.Limits.MaxTotalSize),
			MaxObjects:    toUint64(m.Limits.MaxObjects),
			MaxObjectSize: toUint64(m.Limits.MaxObjectSize),
			MaxObjectPins: toUint64(m.Limits.MaxObjectPins),
		},
	}
	if m.Config != nil {
		in.HashAlgorithm = m.Config.HashAlgorithm
		in.AcceptedCompressionAlgorithms = m.Config.AcceptedCompressionAlgorithms
	}
	if m.Pagination != nil {
		in.MaxPageSize = m.Pagination.MaxPageSize
		in.DefaultPageSize = m.Pagination.DefaultPageSize
	}
	return in
}

// ExecuteMsg is the tagged union of state-changing calls. Exactly one field
// must be set.
type ExecuteMsg struct {
	StoreObject  *StoreObjectMsg `json:"store_object,omitempty"`
	ForgetObject *ObjectIDMsg    `json:"forget_object,omitempty"`
	PinObject    *ObjectIDMsg    `json:"pin_object,omitempty"`
	UnpinObject  *ObjectIDMsg    `json:"unpin_object,omitempty"`
}

// StoreObjectMsg stores new content. Data is base64 in JSON.
type StoreObjectMsg struct {
	Owner                *string `json:"owner,omitempty"`
	Data                 []byte  `json:"data"`
	CompressionAlgorithm *string `json:"compression_algorithm,omitempty"`
	Pin                  bool    `json:"pin,omitempty"`
}

// ObjectIDMsg names an object.
type ObjectIDMsg struct {
	ID string `json:"id"`
}

// Action names of execute and query variants.
const (
	ActionStoreObject  = "store_object"
	ActionForgetObject = "forget_object"
	ActionPinObject    = "pin_object"
	ActionUnpinObject  = "unpin_object"

	QueryBucket     = "bucket"
	QueryObject     = "object"
	QueryObjects    = "objects"
	QueryObjectData = "object_data"
	QueryObjectPins = "object_pins"
)

func (m ExecuteMsg) action() (string, error) {
	var set []string
	if m.StoreObject != nil {
		set = append(set, ActionStoreObject)
	}
	if m.ForgetObject != nil {
		set = append(set, ActionForgetObject)
	}
	if m.PinObject != nil {
		set = append(set, ActionPinObject)
	}
	if m.UnpinObject != nil {
		set = append(set, ActionUnpinObject)
	}
	return single(set)
}

// QueryMsg is the tagged union of read-only calls. Exactly one field must
// be set.
type QueryMsg struct {
	Bucket     *struct{}        `json:"bucket,omitempty"`
	Object     *ObjectIDMsg     `json:"object,omitempty"`
	Objects    *ObjectsQuery    `json:"objects,omitempty"`
	ObjectData *ObjectIDMsg     `json:"object_data,omitempty"`
	ObjectPins *ObjectPinsQuery `json:"object_pins,omitempty"`
}

// ObjectsQuery pages through objects, optionally those of one owner.
type ObjectsQuery struct {
	Address *string `json:"address,omitempty"`
	First   *uint32 `json:"first,omitempty"`
	After   *string `json:"after,omitempty"`
}

// ObjectPinsQuery pages through the addresses pinning an object.
type ObjectPinsQuery struct {
	ID    string  `json:"id"`
	First *uint32 `json:"first,omitempty"`
	After *string `json:"after,omitempty"`
}

func (m QueryMsg) action() (string, error) {
	var set []string
	if m.Bucket != nil {
		set = append(set, QueryBucket)
	}
	if m.Object != nil {
		set = append(set, QueryObject)
	}
	if m.Objects != nil {
		set = append(set, QueryObjects)
	}
	if m.ObjectData != nil {
		set = append(set, QueryObjectData)
	}
	if m.ObjectPins != nil {
		set = append(set, QueryObjectPins)
	}
	return single(set)
}

func single(set []string) (string, error) {
	switch len(set) {
	case 0:
		return "", fmt.Errorf("%w: no variant set", ErrInvalidMessage)
	case 1:
		return set[0], nil
	default:
		return "", fmt.Errorf("%w: variants %s are mutually exclusive", ErrInvalidMessage, strings.Join(set, ", "))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Attribute is a key/value pair describing an execute outcome.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExecuteResponse reports what an execute did.
type ExecuteResponse struct {
	Attributes []Attribute `json:"attributes"`
}

func (r *ExecuteResponse) add(key, value string) {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
}

// Get returns the value of the first attribute named key.
func (r ExecuteResponse) Get(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// BucketConfigResponse describes the content settings of the bucket.
type BucketConfigResponse struct {
	HashAlgorithm                 string   `json:"hash_algorithm"`
	AcceptedCompressionAlgorithms []string `json:"accepted_compression_algorithms"`
}

// PaginationResponse describes the page size bounds of the bucket.
type PaginationResponse struct {
	MaxPageSize     uint32 `json:"max_page_size"`
	DefaultPageSize uint32 `json:"default_page_size"`
}

// BucketStat aggregates the stored objects.
type BucketStat struct {
	ObjectCount         Uint64 `json:"object_count"`
	TotalSize           Uint64 `json:"total_size"`
	TotalCompressedSize Uint64 `json:"total_compressed_size"`
}

// BucketResponse answers the bucket query.
type BucketResponse struct {
	Name       string               `json:"name"`
	Config     BucketConfigResponse `json:"config"`
	Limits     BucketLimits         `json:"limits"`
	Pagination PaginationResponse   `json:"pagination"`
	Stat       BucketStat           `json:"stat"`
}

func newBucketResponse(b bucket.Bucket) BucketResponse {
	algos := make([]string, 0, len(b.Config.AcceptedCompressionAlgorithms))
	for _, a := range b.Config.AcceptedCompressionAlgorithms {
		algos = append(algos, a.String())
	}
	return BucketResponse{
		Name: b.Name,
		Config: BucketConfigResponse{
			HashAlgorithm:                 string(b.Config.HashAlgorithm),
			AcceptedCompressionAlgorithms: algos,
		},
		Limits: BucketLimits{
			MaxTotalSize:  fromUint64(b.Limits.MaxTotalSize),
			MaxObjects:    fromUint64(b.Limits.MaxObjects),
			MaxObjectSize: fromUint64(b.Limits.MaxObjectSize),
			MaxObjectPins: fromUint64(b.Limits.MaxObjectPins),
		},
		Pagination: PaginationResponse{
			MaxPageSize:     b.Pagination.MaxPageSize,
			DefaultPageSize: b.Pagination.DefaultPageSize,
		},
		Stat: BucketStat{
			ObjectCount:         Uint64(b.Stat.ObjectCount),
			TotalSize:           Uint64(b.Stat.TotalSize),
			TotalCompressedSize: Uint64(b.Stat.TotalCompressedSize),
		},
	}
}

// ObjectResponse describes one object.
type ObjectResponse struct {
	ID                   string `json:"id"`
	Owner                string `json:"owner"`
	IsPinned             bool   `json:"is_pinned"`
	Size                 Uint64 `json:"size"`
	CompressedSize       Uint64 `json:"compressed_size"`
	CompressionAlgorithm string `json:"compression_algorithm"`
}

func newObjectResponse(o object.Object) ObjectResponse {
	return ObjectResponse{
		ID:                   o.ID,
		Owner:                o.Owner,
		IsPinned:             o.IsPinned(),
		Size:                 Uint64(o.Size),
		CompressedSize:       Uint64(o.CompressedSize),
		CompressionAlgorithm: o.CompressionAlgorithm.String(),
	}
}

// PageInfo tells whether more items follow and where to resume.
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	Cursor      string `json:"cursor"`
}

func newPageInfo(p pagination.PageInfo) PageInfo {
	return PageInfo{HasNextPage: p.HasNextPage, Cursor: p.Cursor}
}

// ObjectsResponse is one page of objects.
type ObjectsResponse struct {
	Data     []ObjectResponse `json:"data"`
	PageInfo PageInfo         `json:"page_info"`
}

// ObjectPinsResponse is one page of pinning addresses.
type ObjectPinsResponse struct {
	Data     []string `json:"data"`
	PageInfo PageInfo `json:"page_info"`
}
