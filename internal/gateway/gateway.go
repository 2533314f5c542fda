// Package gateway dispatches instantiate, execute and query messages onto
// the bucket, object and pin components. Every execute runs in one write
// transaction and every query in one read snapshot.
package gateway

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/abduss/pinstore/internal/bucket"
	"github.com/abduss/pinstore/internal/compression"
	"github.com/abduss/pinstore/internal/metrics"
	"github.com/abduss/pinstore/internal/object"
	"github.com/abduss/pinstore/internal/pagination"
	"github.com/abduss/pinstore/internal/pin"
	"github.com/abduss/pinstore/internal/state"
)

type bucketService interface {
	Instantiate(ctx context.Context, tx state.Tx, in bucket.InstantiateInput) (bucket.Bucket, error)
	GetBucket(ctx context.Context, rd state.Reader) (bucket.Bucket, error)
}

type objectService interface {
	Store(ctx context.Context, tx state.Tx, in object.StoreInput) (object.Object, error)
	Forget(ctx context.Context, tx state.Tx, id, sender string) (object.ForgetResult, error)
	Get(ctx context.Context, rd state.Reader, id string) (object.Object, error)
	Data(ctx context.Context, rd state.Reader, id string) ([]byte, error)
	List(ctx context.Context, rd state.Reader, in object.ListInput) ([]object.Object, pagination.PageInfo, error)
}

type pinManager interface {
	Pin(ctx context.Context, tx state.Tx, id, address string) (bool, error)
	Unpin(ctx context.Context, tx state.Tx, id, address string) (bool, error)
	List(ctx context.Context, rd state.Reader, id, cursor string, first *uint32) ([]string, pagination.PageInfo, error)
}

// Gateway is the single entry point to a pinstore state.
type Gateway struct {
	store   state.Store
	buckets bucketService
	objects objectService
	pins    pinManager
	logger  *zap.Logger

	// writeMu serializes executes so their effects are applied one at a time
	// whatever the backend.
	writeMu sync.Mutex
}

// New assembles a gateway from its components.
func New(store state.Store, buckets bucketService, objects objectService, pins pinManager, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{store: store, buckets: buckets, objects: objects, pins: pins, logger: logger}
}

// NewFromState wires the default components on top of store.
func NewFromState(store state.Store, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	bucketRepo := bucket.NewRepository()
	objectRepo := object.NewRepository()
	pins := pin.NewManager(objectRepo, bucketRepo, logger.Named("pin"))
	objects := object.NewService(objectRepo, bucketRepo, pins)
	return New(store, bucket.NewService(bucketRepo), objects, pins, logger)
}

// Instantiate creates the bucket from a message.
func (g *Gateway) Instantiate(ctx context.Context, sender string, msg InstantiateMsg) (BucketResponse, error) {
	return g.InstantiateBucket(ctx, sender, msg.Input())
}

// InstantiateBucket creates the bucket.
func (g *Gateway) InstantiateBucket(ctx context.Context, sender string, in bucket.InstantiateInput) (BucketResponse, error) {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	var b bucket.Bucket
	err := g.store.Update(ctx, func(tx state.Tx) error {
		var err error
		b, err = g.buckets.Instantiate(ctx, tx, in)
		return err
	})
	metrics.ObserveCall("instantiate", "instantiate", err)
	if err != nil {
		return BucketResponse{}, err
	}

	g.logger.Info("bucket instantiated",
		zap.String("bucket", b.Name),
		zap.String("sender", sender),
		zap.String("hash_algorithm", string(b.Config.HashAlgorithm)),
	)
	g.publishUsage(b.Stat)
	return newBucketResponse(b), nil
}

// Execute applies a state-changing message on behalf of sender. Either the
// whole message takes effect or nothing does.
func (g *Gateway) Execute(ctx context.Context, sender string, msg ExecuteMsg) (ExecuteResponse, error) {
	action, err := msg.action()
	if err != nil {
		return ExecuteResponse{}, err
	}
	if sender == "" {
		return ExecuteResponse{}, ErrMissingSender
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	var (
		resp   ExecuteResponse
		stat   bucket.Stat
		stored *object.Object
	)
	resp.add("action", action)

	err = g.store.Update(ctx, func(tx state.Tx) error {
		switch {
		case msg.StoreObject != nil:
			m := msg.StoreObject
			obj, err := g.objects.Store(ctx, tx, object.StoreInput{
				Sender:      sender,
				Owner:       m.Owner,
				Data:        m.Data,
				Compression: deref(m.CompressionAlgorithm),
				Pin:         m.Pin,
			})
			if err != nil {
				return err
			}
			stored = &obj
			resp.add("id", obj.ID)
			resp.add("owner", obj.Owner)
			resp.add("size", strconv.FormatUint(obj.Size, 10))
			resp.add("compressed_size", strconv.FormatUint(obj.CompressedSize, 10))
			resp.add("pinned", strconv.FormatBool(obj.IsPinned()))

		case msg.ForgetObject != nil:
			res, err := g.objects.Forget(ctx, tx, msg.ForgetObject.ID, sender)
			if err != nil {
				return err
			}
			resp.add("id", res.Object.ID)
			resp.add("deleted", strconv.FormatBool(res.Deleted))

		case msg.PinObject != nil:
			changed, err := g.pins.Pin(ctx, tx, msg.PinObject.ID, sender)
			if err != nil {
				return err
			}
			resp.add("id", msg.PinObject.ID)
			resp.add("pinned", strconv.FormatBool(changed))

		case msg.UnpinObject != nil:
			changed, err := g.pins.Unpin(ctx, tx, msg.UnpinObject.ID, sender)
			if err != nil {
				return err
			}
			resp.add("id", msg.UnpinObject.ID)
			resp.add("unpinned", strconv.FormatBool(changed))
		}

		b, err := g.buckets.GetBucket(ctx, tx)
		if err != nil {
			return err
		}
		stat = b.Stat
		return nil
	})
	metrics.ObserveCall("execute", action, err)
	if err != nil {
		g.logger.Debug("execute failed",
			zap.String("action", action),
			zap.String("sender", sender),
			zap.Error(err),
		)
		return ExecuteResponse{}, err
	}

	id, _ := resp.Get("id")
	g.logger.Info("execute",
		zap.String("action", action),
		zap.String("sender", sender),
		zap.String("object_id", id),
	)
	if stored != nil {
		metrics.ObserveCompression(stored.CompressionAlgorithm.String(),
			compression.Ratio(int(stored.Size), int(stored.CompressedSize)))
	}
	g.publishUsage(stat)
	return resp, nil
}

// Query answers a read-only message. The result is one of BucketResponse,
// ObjectResponse, ObjectsResponse, ObjectPinsResponse or []byte for
// object data.
func (g *Gateway) Query(ctx context.Context, msg QueryMsg) (any, error) {
	action, err := msg.action()
	if err != nil {
		return nil, err
	}

	var out any
	err = g.store.View(ctx, func(r state.Reader) error {
		switch {
		case msg.Bucket != nil:
			b, err := g.buckets.GetBucket(ctx, r)
			if err != nil {
				return err
			}
			out = newBucketResponse(b)

		case msg.Object != nil:
			obj, err := g.objects.Get(ctx, r, msg.Object.ID)
			if err != nil {
				return err
			}
			out = newObjectResponse(obj)

		case msg.Objects != nil:
			q := msg.Objects
			objs, info, err := g.objects.List(ctx, r, object.ListInput{
				Owner: deref(q.Address),
				First: q.First,
				After: deref(q.After),
			})
			if err != nil {
				return err
			}
			resp := ObjectsResponse{Data: make([]ObjectResponse, 0, len(objs)), PageInfo: newPageInfo(info)}
			for _, obj := range objs {
				resp.Data = append(resp.Data, newObjectResponse(obj))
			}
			out = resp

		case msg.ObjectData != nil:
			data, err := g.objects.Data(ctx, r, msg.ObjectData.ID)
			if err != nil {
				return err
			}
			out = data

		case msg.ObjectPins != nil:
			q := msg.ObjectPins
			addrs, info, err := g.pins.List(ctx, r, q.ID, deref(q.After), q.First)
			if err != nil {
				return err
			}
			if addrs == nil {
				addrs = []string{}
			}
			out = ObjectPinsResponse{Data: addrs, PageInfo: newPageInfo(info)}
		}
		return nil
	})
	metrics.ObserveCall("query", action, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Bucket is a typed shortcut for the bucket query.
func (g *Gateway) Bucket(ctx context.Context) (BucketResponse, error) {
	out, err := g.Query(ctx, QueryMsg{Bucket: &struct{}{}})
	if err != nil {
		return BucketResponse{}, err
	}
	return out.(BucketResponse), nil
}

// ObjectData is a typed shortcut for the object_data query.
func (g *Gateway) ObjectData(ctx context.Context, id string) ([]byte, error) {
	out, err := g.Query(ctx, QueryMsg{ObjectData: &ObjectIDMsg{ID: id}})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// Ping checks the underlying state backend.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.store.Ping(ctx)
}

func (g *Gateway) publishUsage(stat bucket.Stat) {
	metrics.SetBucketUsage(stat.ObjectCount, stat.TotalSize, stat.TotalCompressedSize)
}

// ObjectIDs lists one default-sized page of object ids after the cursor.
func (g *Gateway) ObjectIDs(ctx context.Context, after string) ([]string, string, bool, error) {
	out, err := g.Query(ctx, QueryMsg{Objects: &ObjectsQuery{After: &after}})
	if err != nil {
		return nil, "", false, err
	}
	page := out.(ObjectsResponse)
	ids := make([]string, 0, len(page.Data))
	for _, obj := range page.Data {
		ids = append(ids, obj.ID)
	}
	return ids, page.PageInfo.Cursor, page.PageInfo.HasNextPage, nil
}
