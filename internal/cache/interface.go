package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by a Store when the key does not exist or has
	// expired.
	ErrNotFound = errors.New("cache miss")

	// ErrScanUnsupported is returned by backends that cannot enumerate keys.
	ErrScanUnsupported = errors.New("cache backend does not support key scans")
)

// Store is the thin client over a remote key-value backend. Keys passed to a
// Store are already fully qualified.
type Store interface {
	// Get fetches the raw value stored at key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// SetEX stores val at key with the given time to live
	SetEX(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Del removes the keys and reports how many existed
	Del(ctx context.Context, keys ...string) (int64, error)

	// ScanKeys walks every key matching the glob in batches of roughly
	// batch keys, calling fn once per non-empty batch. fn may be called
	// concurrently when the backend is sharded.
	ScanKeys(ctx context.Context, match string, batch int64, fn func(keys []string) error) error

	// Ping checks cache connection
	Ping(ctx context.Context) error

	// Driver names the backend for metrics and logs
	Driver() string

	// Close gracefully closes any connections
	Close() error
}

// Dialer opens a Store. It should fail when the backend is unreachable so the
// Manager stays disconnected instead of serving from a dead pool.
type Dialer func(ctx context.Context) (Store, error)
