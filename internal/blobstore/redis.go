package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis implements the Store interface with one string key per object
type Redis struct {
	client *redis.Client
}

// NewRedis connects to addr and pings it
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Redis{client: rdb}, nil
}

// redisKey namespaces keys by bucket
func redisKey(bucket, key string) string { return bucket + ":" + key }

// Get reads the object value
func (r *Redis) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKey(bucket, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading key %s: %w", key, err)
	}
	return data, nil
}

// Put stores the object without expiry
func (r *Redis) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := r.client.Set(ctx, redisKey(bucket, key), data, 0).Err(); err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the key is set
func (r *Redis) Exists(ctx context.Context, bucket, key string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKey(bucket, key)).Result()
	if err != nil {
		return false, fmt.Errorf("checking key %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes the key
func (r *Redis) Delete(ctx context.Context, bucket, key string) error {
	if err := r.client.Del(ctx, redisKey(bucket, key)).Err(); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

// Close closes the redis client
func (r *Redis) Close() error {
	return r.client.Close()
}
