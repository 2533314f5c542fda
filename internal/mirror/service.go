// Package mirror copies object content to a MinIO bucket and hands out
// presigned download links for it.
package mirror

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const keyPrefix = "objects/"

type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Source enumerates the objects of a pinstore state.
type Source interface {
	ObjectIDs(ctx context.Context, after string) (ids []string, cursor string, more bool, err error)
	ObjectData(ctx context.Context, id string) ([]byte, error)
}

// Service mirrors objects into a single MinIO bucket.
type Service struct {
	client  objectClient
	bucket  string
	ttl     time.Duration
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewService creates a mirror writing into bucket. Links stay valid for ttl.
func NewService(client objectClient, bucket string, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:  client,
		bucket:  bucket,
		ttl:     ttl,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// ObjectName returns the key an object is mirrored under.
func ObjectName(id string) string {
	return keyPrefix + id
}

// Put uploads the content unless the mirror already holds it. Object ids
// are content hashes, so an existing key never needs rewriting.
func (s *Service) Put(ctx context.Context, id string, data []byte) (bool, error) {
	name := ObjectName(id)

	info, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err == nil && info.Size == int64(len(data)) {
		return false, nil
	}
	if err != nil && minio.ToErrorResponse(err).StatusCode != http.StatusNotFound {
		return false, fmt.Errorf("stat mirrored object: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: map[string]string{"pinstore-id": id},
	})
	if err != nil {
		return false, fmt.Errorf("upload mirrored object: %w", err)
	}

	s.logger.Info("object mirrored",
		zap.String("object_id", id),
		zap.String("bucket", s.bucket),
		zap.String("size", humanize.IBytes(uint64(len(data)))),
	)
	return true, nil
}

// Link mirrors the content if needed and returns a presigned GET URL.
func (s *Service) Link(ctx context.Context, id string, data []byte) (string, time.Time, error) {
	if _, err := s.Put(ctx, id, data); err != nil {
		return "", time.Time{}, err
	}

	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", id))

	expiresAt := s.nowFunc().Add(s.ttl)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, ObjectName(id), s.ttl, params)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign mirrored object: %w", err)
	}
	return u.String(), expiresAt, nil
}

// Remove deletes the mirrored copy of a deleted object. Links issued for it
// stop resolving once the key is gone.
func (s *Service) Remove(ctx context.Context, id string) error {
	err := s.client.RemoveObject(ctx, s.bucket, ObjectName(id), minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove mirrored object: %w", err)
	}
	s.logger.Info("mirrored object removed", zap.String("object_id", id), zap.String("bucket", s.bucket))
	return nil
}

// SyncResult counts the outcome of a Sync.
type SyncResult struct {
	Uploaded int
	Skipped  int
}

// Sync mirrors every object of src.
func (s *Service) Sync(ctx context.Context, src Source) (SyncResult, error) {
	var (
		result SyncResult
		after  string
	)
	for {
		ids, cursor, more, err := src.ObjectIDs(ctx, after)
		if err != nil {
			return result, fmt.Errorf("list objects: %w", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			data, err := src.ObjectData(ctx, id)
			if err != nil {
				return result, fmt.Errorf("read object %s: %w", id, err)
			}
			uploaded, err := s.Put(ctx, id, data)
			if err != nil {
				return result, err
			}
			if uploaded {
				result.Uploaded++
			} else {
				result.Skipped++
			}
		}
		if !more {
			return result, nil
		}
		after = cursor
	}
}
