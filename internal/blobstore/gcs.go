package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS implements the Store interface on Google Cloud Storage
type GCS struct {
	client *storage.Client
}

// NewGCS creates a GCS store. Credentials come from the environment
// (GOOGLE_APPLICATION_CREDENTIALS) unless opts say otherwise.
func NewGCS(ctx context.Context, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	return &GCS{client: client}, nil
}

// Get downloads the object
func (g *GCS) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	r, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}

// Put uploads the object, overwriting any previous version
func (g *GCS) Put(ctx context.Context, bucket, key string, data []byte) error {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing object %s: %w", key, err)
	}
	return nil
}

// Exists checks the object attributes
func (g *GCS) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading object attrs %s: %w", key, err)
	}
	return true, nil
}

// Delete removes the object if present
func (g *GCS) Delete(ctx context.Context, bucket, key string) error {
	err := g.client.Bucket(bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

// Close closes the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}
