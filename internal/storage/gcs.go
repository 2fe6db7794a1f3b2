package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

type GCSStore struct {
	client   *storage.Client
	bucket   string
	project  string
	location string
}

func NewGCSStore(ctx context.Context, bucket, project, location string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, project: project, location: location}, nil
}

func (g *GCSStore) EnsureBucket(ctx context.Context) error {
	err := g.client.Bucket(g.bucket).Create(ctx, g.project, &storage.BucketAttrs{Location: g.location})
	if isConflict(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("criar bucket gcs %s: %w", g.bucket, err)
	}
	return nil
}

func isConflict(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}

func (g *GCSStore) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("enviar %s: %w", g.URI(key), err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("enviar %s: %w", g.URI(key), err)
	}
	return g.URI(key), nil
}

func (g *GCSStore) URI(key string) string { return fmt.Sprintf("gs://%s/%s", g.bucket, key) }

func (g *GCSStore) Close() error { return g.client.Close() }
