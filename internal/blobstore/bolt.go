package blobstore

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Bolt implements the Store interface using BoltDB.
// Each blob bucket maps to a bolt bucket created on first write.
type Bolt struct {
	db *bbolt.DB
}

// NewBolt opens (or creates) the bolt file at path
func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Get retrieves an object from the bolt bucket
func (b *Bolt) Get(_ context.Context, bucket, key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return ErrNotFound
		}
		v := bkt.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// bolt values are only valid for the life of the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put saves an object, creating the bolt bucket if needed
func (b *Bolt) Put(_ context.Context, bucket, key string, data []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		return bkt.Put([]byte(key), data)
	})
}

// Exists reports whether the key is present
func (b *Bolt) Exists(_ context.Context, bucket, key string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		if bkt := tx.Bucket([]byte(bucket)); bkt != nil {
			found = bkt.Get([]byte(key)) != nil
		}
		return nil
	})
	return found, err
}

// Delete removes the key from the bolt bucket
func (b *Bolt) Delete(_ context.Context, bucket, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return nil
		}
		return bkt.Delete([]byte(key))
	})
}

// Close closes the database connection
func (b *Bolt) Close() error {
	return b.db.Close()
}
