package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local implements the Store interface using the local filesystem.
// Objects live at <basePath>/<bucket>/<key>.
type Local struct {
	basePath string
}

// NewLocal creates a new Local store rooted at basePath
func NewLocal(basePath string) (*Local, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &Local{
		basePath: basePath,
	}, nil
}

func (l *Local) path(bucket, key string) (string, error) {
	p := filepath.Join(l.basePath, bucket, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Clean(l.basePath)+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key: %s", key)
	}
	return p, nil
}

// Get retrieves an object from local storage
func (l *Local) Get(_ context.Context, bucket, key string) ([]byte, error) {
	p, err := l.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Put writes an object to local storage
func (l *Local) Put(_ context.Context, bucket, key string, data []byte) error {
	p, err := l.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}
	// tokens live here, keep them private
	if err := os.WriteFile(p, data, 0600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// Exists reports whether the object file exists
func (l *Local) Exists(_ context.Context, bucket, key string) (bool, error) {
	p, err := l.path(bucket, key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking file: %w", err)
	}
	return true, nil
}

// Delete removes an object from local storage
func (l *Local) Delete(_ context.Context, bucket, key string) error {
	p, err := l.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Close is a no-op for the filesystem
func (l *Local) Close() error {
	return nil
}
