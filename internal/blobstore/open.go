package blobstore

import (
	"context"
	"fmt"
)

// Options selects and configures a Store backend
type Options struct {
	Backend   string // gcs, bolt, redis or file
	BoltPath  string
	RedisAddr string
	FileRoot  string
}

// Open builds the Store named by opts.Backend
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		store Store
		err   error
	)
	switch opts.Backend {
	case "gcs":
		store, err = NewGCS(ctx)
	case "bolt":
		store, err = NewBolt(opts.BoltPath)
	case "redis":
		store, err = NewRedis(ctx, opts.RedisAddr)
	case "file":
		store, err = NewLocal(opts.FileRoot)
	default:
		return nil, fmt.Errorf("unknown blob backend %q (valid: gcs, bolt, redis, file)", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
