package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the object does not exist
var ErrNotFound = errors.New("object not found")

// Store defines the interface for named-object storage inside buckets
type Store interface {
	// Get retrieves the object data, or ErrNotFound
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put creates or overwrites the object
	Put(ctx context.Context, bucket, key string, data []byte) error

	// Exists reports whether the object exists
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// Close releases the underlying client
	Close() error
}
