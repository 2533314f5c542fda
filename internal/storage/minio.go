package storage

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/abduss/pinstore/internal/config"
)

const (
	minioDefaultPort  = "9000"
	mirrorDialTimeout = 5 * time.Second
)

// OpenMirror connects to MinIO and makes sure the mirror bucket exists.
func OpenMirror(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("mirror bucket name is empty")
	}

	client, err := minio.New(mirrorEndpoint(cfg.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, mirrorDialTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check mirror bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create mirror bucket %q: %w", cfg.Bucket, err)
		}
	}
	return client, nil
}

func mirrorEndpoint(endpoint string) string {
	if _, _, err := net.SplitHostPort(endpoint); err == nil {
		return endpoint
	}
	return net.JoinHostPort(endpoint, minioDefaultPort)
}
