package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ntentasd/fitmetrics-api/internal/metrics"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*Valkey)(nil)

type ValkeyOptions struct {
	Addrs       []string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

type Valkey struct {
	client redis.UniversalClient
}

// NewValkey builds a pooled client. A single address yields a plain client,
// several addresses a cluster client.
func NewValkey(opts ValkeyOptions) *Valkey {
	dialTimeout := opts.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 2 * time.Second
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       opts.Addrs,
		Password:    opts.Password,
		DB:          opts.DB,
		PoolSize:    opts.PoolSize,
		DialTimeout: dialTimeout,
	})
	return &Valkey{client}
}

// ValkeyDialer returns a Dialer that builds the pool and verifies it with a
// PING before handing it out.
func ValkeyDialer(opts ValkeyOptions) Dialer {
	return func(ctx context.Context) (Store, error) {
		if len(opts.Addrs) == 0 {
			return nil, errors.New("no valkey addresses configured")
		}

		v := NewValkey(opts)
		if err := v.Ping(ctx); err != nil {
			v.Close()
			return nil, fmt.Errorf("valkey ping %v: %w", opts.Addrs, err)
		}
		return v, nil
	}
}

func (v *Valkey) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := v.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return val, err
}

func (v *Valkey) SetEX(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return v.client.Set(ctx, key, val, ttl).Err()
}

func (v *Valkey) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	// a multi-key DEL fails with CROSSSLOT on a cluster, so send one DEL per
	// key in a single pipeline
	if cc, ok := v.client.(*redis.ClusterClient); ok && len(keys) > 1 {
		cmds, err := cc.Pipelined(ctx, func(p redis.Pipeliner) error {
			for _, key := range keys {
				p.Del(ctx, key)
			}
			return nil
		})

		var deleted int64
		for _, cmd := range cmds {
			if ic, ok := cmd.(*redis.IntCmd); ok {
				deleted += ic.Val()
			}
		}
		return deleted, err
	}

	return v.client.Del(ctx, keys...).Result()
}

func (v *Valkey) ScanKeys(ctx context.Context, match string, batch int64, fn func(keys []string) error) error {
	if cc, ok := v.client.(*redis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return scanNode(ctx, node, match, batch, fn)
		})
	}
	return scanNode(ctx, v.client, match, batch, fn)
}

func scanNode(ctx context.Context, c redis.Cmdable, match string, batch int64, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.Scan(ctx, cursor, match, batch).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *Valkey) Driver() string {
	return metrics.ValkeyCache
}

func (v *Valkey) Close() error {
	return v.client.Close()
}
