package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/ntentasd/fitmetrics-api/internal/metrics"
)

var _ Store = (*Memcached)(nil)

// Memcached is a Store over memcached. Memcached cannot list keys, so
// pattern deletes always report ErrScanUnsupported and rely on TTL expiry.
type Memcached struct {
	client *memcache.Client
}

func NewMemcached(poolSize int, addrs ...string) *Memcached {
	client := memcache.New(addrs...)
	client.Timeout = 100 * time.Millisecond
	if poolSize > 0 {
		client.MaxIdleConns = poolSize
	}
	return &Memcached{client}
}

func MemcachedDialer(poolSize int, addrs ...string) Dialer {
	return func(ctx context.Context) (Store, error) {
		if len(addrs) == 0 {
			return nil, errors.New("no memcached addresses configured")
		}

		m := NewMemcached(poolSize, addrs...)
		if err := m.Ping(ctx); err != nil {
			m.Close()
			return nil, fmt.Errorf("memcached ping %v: %w", addrs, err)
		}
		return m, nil
	}
}

// do runs a blocking memcache call, giving up when ctx is done. The call
// itself is bounded by the client timeout.
func do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memcached) Get(ctx context.Context, key string) ([]byte, error) {
	var item *memcache.Item
	err := do(ctx, func() error {
		var err error
		item, err = m.client.Get(key)
		return err
	})
	switch {
	case errors.Is(err, memcache.ErrCacheMiss):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	default:
		return item.Value, nil
	}
}

func (m *Memcached) SetEX(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return do(ctx, func() error {
		return m.client.Set(&memcache.Item{
			Key:        key,
			Value:      val,
			Expiration: expiration(ttl),
		})
	})
}

// expiration converts ttl to memcached's whole seconds, rounding up: a zero
// expiration never expires.
func expiration(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	return int32((ttl + time.Second - 1) / time.Second)
}

func (m *Memcached) Del(ctx context.Context, keys ...string) (int64, error) {
	var deleted int64
	for _, key := range keys {
		err := do(ctx, func() error {
			return m.client.Delete(key)
		})
		switch {
		case errors.Is(err, memcache.ErrCacheMiss):
		case err != nil:
			return deleted, err
		default:
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memcached) ScanKeys(ctx context.Context, match string, batch int64, fn func(keys []string) error) error {
	return ErrScanUnsupported
}

func (m *Memcached) Ping(ctx context.Context) error {
	return do(ctx, m.client.Ping)
}

func (m *Memcached) Driver() string {
	return metrics.MemcachedCache
}

func (m *Memcached) Close() error {
	return m.client.Close()
}
