package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/abduss/pinstore/internal/errkind"
	"github.com/abduss/pinstore/internal/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	addr1 = "addr1"
	addr2 = "addr2"
)

func u64(v uint64) *Uint64 { u := Uint64(v); return &u }
func u32(v uint32) *uint32 { return &v }
func str(s string) *string { return &s }

func newGateway(t *testing.T, msg InstantiateMsg) *Gateway {
	t.Helper()
	gw := NewFromState(state.NewMemory(), nil)
	if msg.Bucket == "" {
		msg.Bucket = "test"
	}
	_, err := gw.Instantiate(context.Background(), "admin", msg)
	require.NoError(t, err)
	return gw
}

func store(t *testing.T, gw *Gateway, sender string, data string) string {
	t.Helper()
	resp, err := gw.Execute(context.Background(), sender, ExecuteMsg{StoreObject: &StoreObjectMsg{Data: []byte(data)}})
	require.NoError(t, err)
	id, ok := resp.Get("id")
	require.True(t, ok)
	return id
}

func bucketStat(t *testing.T, gw *Gateway) BucketStat {
	t.Helper()
	b, err := gw.Bucket(context.Background())
	require.NoError(t, err)
	return b.Stat
}

func TestInstantiate(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{
		Bucket: "my bucket",
		Config: &BucketConfigMsg{AcceptedCompressionAlgorithms: []string{"zstd"}},
		Limits: BucketLimits{MaxObjects: u64(3)},
	})

	b, err := gw.Bucket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mybucket", b.Name)
	assert.Equal(t, "sha256", b.Config.HashAlgorithm)
	assert.Equal(t, []string{"zstd"}, b.Config.AcceptedCompressionAlgorithms)
	require.NotNil(t, b.Limits.MaxObjects)
	assert.Equal(t, Uint64(3), *b.Limits.MaxObjects)
	assert.Nil(t, b.Limits.MaxTotalSize)
	assert.Equal(t, PaginationResponse{MaxPageSize: 30, DefaultPageSize: 10}, b.Pagination)

	_, err = gw.Instantiate(context.Background(), "admin", InstantiateMsg{Bucket: "again"})
	require.ErrorIs(t, err, errkind.ErrConflict)
}

func TestQueryBeforeInstantiate(t *testing.T) {
	gw := NewFromState(state.NewMemory(), nil)
	_, err := gw.Bucket(context.Background())
	require.ErrorIs(t, err, errkind.ErrNotFound)
}

func TestVariantValidation(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{})
	ctx := context.Background()

	_, err := gw.Execute(ctx, addr1, ExecuteMsg{})
	require.ErrorIs(t, err, errkind.ErrInvalidInput)

	_, err = gw.Execute(ctx, addr1, ExecuteMsg{PinObject: &ObjectIDMsg{ID: "aa"}, UnpinObject: &ObjectIDMsg{ID: "aa"}})
	require.ErrorIs(t, err, ErrInvalidMessage)

	_, err = gw.Query(ctx, QueryMsg{})
	require.ErrorIs(t, err, errkind.ErrInvalidInput)

	_, err = gw.Query(ctx, QueryMsg{Bucket: &struct{}{}, Object: &ObjectIDMsg{ID: "aa"}})
	require.ErrorIs(t, err, ErrInvalidMessage)

	_, err = gw.Execute(ctx, "", ExecuteMsg{PinObject: &ObjectIDMsg{ID: "aa"}})
	require.ErrorIs(t, err, errkind.ErrUnauthorized)
}

func TestMaxObjectsExample(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{Limits: BucketLimits{MaxObjects: u64(1)}})
	store(t, gw, addr1, "A")

	_, err := gw.Execute(context.Background(), addr1, ExecuteMsg{StoreObject: &StoreObjectMsg{Data: []byte("B")}})
	require.ErrorIs(t, err, errkind.ErrLimitExceeded)
	assert.Equal(t, Uint64(1), bucketStat(t, gw).ObjectCount)
}

func TestMaxTotalSizeLeavesCountersUnchanged(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{Limits: BucketLimits{MaxTotalSize: u64(4)}})
	store(t, gw, addr1, "abc")
	before := bucketStat(t, gw)

	_, err := gw.Execute(context.Background(), addr1, ExecuteMsg{StoreObject: &StoreObjectMsg{Data: []byte("de")}})
	require.ErrorIs(t, err, errkind.ErrLimitExceeded)
	assert.Equal(t, before, bucketStat(t, gw))
}

func TestPinIsIdempotentAndListed(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{})
	ctx := context.Background()
	id := store(t, gw, addr2, "pin me")

	for i := 0; i < 2; i++ {
		_, err := gw.Execute(ctx, addr1, ExecuteMsg{PinObject: &ObjectIDMsg{ID: id}})
		require.NoError(t, err)
	}

	out, err := gw.Query(ctx, QueryMsg{ObjectPins: &ObjectPinsQuery{ID: id}})
	require.NoError(t, err)
	pins := out.(ObjectPinsResponse)
	assert.Equal(t, []string{addr1}, pins.Data)
	assert.False(t, pins.PageInfo.HasNextPage)

	out, err = gw.Query(ctx, QueryMsg{Object: &ObjectIDMsg{ID: id}})
	require.NoError(t, err)
	assert.True(t, out.(ObjectResponse).IsPinned)
}

func TestForgetWaitsForEveryPin(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{})
	ctx := context.Background()
	id := store(t, gw, addr1, "shared")

	for _, addr := range []string{addr1, addr2} {
		_, err := gw.Execute(ctx, addr, ExecuteMsg{PinObject: &ObjectIDMsg{ID: id}})
		require.NoError(t, err)
	}

	resp, err := gw.Execute(ctx, addr1, ExecuteMsg{ForgetObject: &ObjectIDMsg{ID: id}})
	require.NoError(t, err)
	deleted, _ := resp.Get("deleted")
	assert.Equal(t, "false", deleted)
	assert.Equal(t, Uint64(1), bucketStat(t, gw).ObjectCount)

	resp, err = gw.Execute(ctx, addr2, ExecuteMsg{ForgetObject: &ObjectIDMsg{ID: id}})
	require.NoError(t, err)
	deleted, _ = resp.Get("deleted")
	assert.Equal(t, "true", deleted)
	assert.Equal(t, BucketStat{}, bucketStat(t, gw))

	_, err = gw.Query(ctx, QueryMsg{Object: &ObjectIDMsg{ID: id}})
	require.ErrorIs(t, err, errkind.ErrNotFound)
}

func TestForgetWithoutPin(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{})
	ctx := context.Background()
	id := store(t, gw, addr1, "unpinned")

	resp, err := gw.Execute(ctx, addr2, ExecuteMsg{ForgetObject: &ObjectIDMsg{ID: id}})
	require.NoError(t, err)
	deleted, _ := resp.Get("deleted")
	assert.Equal(t, "true", deleted)
	assert.Equal(t, BucketStat{}, bucketStat(t, gw))
}

func TestFailedExecuteRollsBack(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{Limits: BucketLimits{MaxObjectPins: u64(0)}})

	_, err := gw.Execute(context.Background(), addr1, ExecuteMsg{StoreObject: &StoreObjectMsg{Data: []byte("x"), Pin: true}})
	require.ErrorIs(t, err, errkind.ErrLimitExceeded)
	assert.Equal(t, BucketStat{}, bucketStat(t, gw))

	out, err := gw.Query(context.Background(), QueryMsg{Objects: &ObjectsQuery{}})
	require.NoError(t, err)
	assert.Empty(t, out.(ObjectsResponse).Data)
}

func TestObjectDataRoundTrip(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{})
	ctx := context.Background()
	payload := []byte("hello hello hello hello hello hello")

	for _, algo := range []string{"passthrough", "snappy", "lz4", "zstd", "s2"} {
		data := append([]byte(algo+":"), payload...)
		resp, err := gw.Execute(ctx, addr1, ExecuteMsg{StoreObject: &StoreObjectMsg{
			Data:                 data,
			CompressionAlgorithm: str(algo),
		}})
		require.NoError(t, err, algo)
		id, _ := resp.Get("id")

		got, err := gw.ObjectData(ctx, id)
		require.NoError(t, err, algo)
		assert.Equal(t, data, got, algo)
	}
}

func TestListObjectsPaging(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{Pagination: &PaginationMsg{MaxPageSize: u32(4), DefaultPageSize: u32(3)}})
	ctx := context.Background()
	for _, data := range []string{"a", "b", "c", "d", "e"} {
		store(t, gw, addr1, data)
	}

	seen := map[string]bool{}
	var after *string
	pages := 0
	for {
		out, err := gw.Query(ctx, QueryMsg{Objects: &ObjectsQuery{After: after}})
		require.NoError(t, err)
		page := out.(ObjectsResponse)
		pages++
		for _, obj := range page.Data {
			assert.False(t, seen[obj.ID], "object listed twice")
			seen[obj.ID] = true
		}
		if !page.PageInfo.HasNextPage {
			break
		}
		after = str(page.PageInfo.Cursor)
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 2, pages)

	_, err := gw.Query(ctx, QueryMsg{Objects: &ObjectsQuery{First: u32(5)}})
	require.ErrorIs(t, err, errkind.ErrInvalidInput)

	_, err = gw.Query(ctx, QueryMsg{Objects: &ObjectsQuery{After: str("!!")}})
	require.ErrorIs(t, err, errkind.ErrInvalidInput)
}

func TestListObjectsByAddressPrefix(t *testing.T) {
	gw := newGateway(t, InstantiateMsg{})
	ctx := context.Background()
	outer := store(t, gw, "a", "hello")
	inner := store(t, gw, "a/b", "world")

	for addr, want := range map[string]string{"a": outer, "a/b": inner} {
		out, err := gw.Query(ctx, QueryMsg{Objects: &ObjectsQuery{Address: str(addr)}})
		require.NoError(t, err, addr)
		page := out.(ObjectsResponse)
		require.Len(t, page.Data, 1, addr)
		assert.Equal(t, want, page.Data[0].ID)
		assert.Equal(t, addr, page.Data[0].Owner)
	}
}

func TestMessageJSON(t *testing.T) {
	var msg ExecuteMsg
	require.NoError(t, json.Unmarshal([]byte(`{"store_object":{"data":"aGVsbG8=","compression_algorithm":"zstd","pin":true}}`), &msg))
	require.NotNil(t, msg.StoreObject)
	assert.Equal(t, []byte("hello"), msg.StoreObject.Data)
	assert.Equal(t, "zstd", *msg.StoreObject.CompressionAlgorithm)
	assert.True(t, msg.StoreObject.Pin)

	var inst InstantiateMsg
	require.NoError(t, json.Unmarshal([]byte(`{"bucket":"b","limits":{"max_total_size":"18446744073709551615","max_objects":7}}`), &inst))
	in := inst.Input()
	assert.Equal(t, uint64(18446744073709551615), *in.Limits.MaxTotalSize)
	assert.Equal(t, uint64(7), *in.Limits.MaxObjects)
	assert.Nil(t, in.Limits.MaxObjectPins)

	var bad InstantiateMsg
	assert.Error(t, json.Unmarshal([]byte(`{"limits":{"max_objects":"-1"}}`), &bad))

	raw, err := json.Marshal(BucketStat{ObjectCount: 1, TotalSize: 10, TotalCompressedSize: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"object_count":"1","total_size":"10","total_compressed_size":"4"}`, string(raw))

	var q QueryMsg
	require.NoError(t, json.Unmarshal([]byte(`{"bucket":{}}`), &q))
	action, err := q.action()
	require.NoError(t, err)
	assert.Equal(t, QueryBucket, action)
}
