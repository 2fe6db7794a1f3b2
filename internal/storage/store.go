// Package storage provisions the bucket that holds training data and uploads
// objects into it.
package storage

//go:generate mockgen -source=store.go -destination=mock_store.go -package=storage

import (
	"context"
	"fmt"
	"io"

	"xgbdeploy/internal/config"
)

type ObjectStore interface {
	// EnsureBucket creates the bucket, succeeding if the caller already owns it.
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
	URI(key string) string
}

func Open(ctx context.Context, cfg config.Config) (ObjectStore, error) {
	switch cfg.Storage {
	case config.StorageS3:
		return NewS3Store(ctx, cfg.BucketName, cfg.Region)
	case config.StorageGCS:
		return NewGCSStore(ctx, cfg.BucketName, cfg.GCSProject, cfg.Region)
	case config.StorageLocal:
		return NewLocalStore(cfg.DataDir, cfg.BucketName), nil
	default:
		return nil, fmt.Errorf("storage desconhecido %q", cfg.Storage)
	}
}
