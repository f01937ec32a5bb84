// Package storage provides the key-value persistence port the snapshot
// store and the customer importer work against, plus its adapters.
package storage

import (
	"context"
	"fmt"
)

// KV is a string key-value store with the semantics of browser local
// storage: values are opaque strings and a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// BatchWriter is implemented by stores that can apply several writes as
// one unit.
type BatchWriter interface {
	SetMany(ctx context.Context, values map[string]string) error
}

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Options struct {
	Backend     string
	Path        string
	RedisURL    string
	RedisPrefix string
}

// Open builds the adapter named by opts.Backend. The returned function
// releases its resources.
func Open(ctx context.Context, opts Options) (KV, func() error, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), func() error { return nil }, nil
	case BackendFile, "":
		kv, err := NewFile(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() error { return nil }, nil
	case BackendRedis:
		kv, err := NewRedis(ctx, opts.RedisURL, opts.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend: %s", opts.Backend)
}
