// Package snapshot provides small key/value stores for result snapshots.
// Values are opaque JSON documents; expiry is the store's concern.
package snapshot

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("snapshot not found")

type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Backend names accepted by SNAPSHOT_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// ValidBackend reports whether name is a known backend.
func ValidBackend(name string) error {
	switch name {
	case BackendMemory, BackendRedis, BackendSQLite, BackendNone:
		return nil
	}
	return fmt.Errorf("unknown snapshot backend %q", name)
}

// Nop stores nothing. Every Get misses.
type Nop struct{}

func (Nop) Put(context.Context, string, []byte) error { return nil }

func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }

func (Nop) Delete(context.Context, string) error { return nil }

var _ Store = Nop{}
