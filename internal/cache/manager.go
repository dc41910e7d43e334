package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ntentasd/fitmetrics-api/internal/metrics"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPrefix    = "fitmetrics"
	DefaultTTL       = 5 * time.Minute
	DefaultScanBatch = 100
	DefaultOpTimeout = 250 * time.Millisecond
)

var tracer = otel.Tracer("fitmetrics-cache")

type Option func(*Manager)

// WithPrefix sets the namespace every key is stored under.
func WithPrefix(prefix string) Option {
	return func(m *Manager) {
		m.prefix = prefix
	}
}

// WithDefaultTTL sets the TTL used when Set is called without one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithScanBatch sets how many keys are requested per SCAN round-trip.
func WithScanBatch(n int64) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batch = n
		}
	}
}

// WithOperationTimeout bounds every single-key round-trip. Zero leaves the
// caller's deadline as the only bound.
func WithOperationTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.opTimeout = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

type conn struct {
	store   Store
	metrics *CacheMetrics
}

// Manager owns the connection to the cache backend for the life of the
// process. Connect must run once before serving traffic and Disconnect once
// on shutdown. Every operation fails open: backend errors are logged and
// reported as a miss, false or zero, never returned.
type Manager struct {
	dial      Dialer
	prefix    string
	ttl       time.Duration
	batch     int64
	opTimeout time.Duration
	logger    zerolog.Logger

	mu   sync.RWMutex
	conn *conn
	idle *CacheMetrics
}

func NewManager(dial Dialer, opts ...Option) *Manager {
	m := &Manager{
		dial:      dial,
		prefix:    DefaultPrefix,
		ttl:       DefaultTTL,
		batch:     DefaultScanBatch,
		opTimeout: DefaultOpTimeout,
		logger:    zerolog.Nop(),
		idle:      NewCacheMetrics(metrics.NoCache),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect dials the backend. It is a no-op when already connected. On
// failure the manager stays disconnected and keeps serving as a pass-through.
func (m *Manager) Connect(ctx context.Context) error {
	if m.Connected() {
		return nil
	}
	if m.dial == nil {
		return errors.New("cache: no dialer configured")
	}

	store, err := m.dial(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("cache connection failed, caching disabled")
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		// lost a race with a concurrent Connect
		store.Close()
		return nil
	}
	m.conn = &conn{store, NewCacheMetrics(store.Driver())}
	m.logger.Info().Str("driver", store.Driver()).Msg("cache connection pool initialized")

	return nil
}

// Disconnect releases the pool. Safe to call when not connected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	c := m.conn
	m.conn = nil
	m.mu.Unlock()

	if c == nil {
		return
	}
	if err := c.store.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("cache close failed")
		return
	}
	m.logger.Info().Msg("cache connection pool closed")
}

func (m *Manager) Connected() bool {
	return m.current() != nil
}

// Driver reports the connected backend, or "none".
func (m *Manager) Driver() string {
	return m.recorder().driver
}

func (m *Manager) current() *conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

func (m *Manager) recorder() *CacheMetrics {
	if c := m.current(); c != nil {
		return c.metrics
	}
	return m.idle
}

func (m *Manager) makeKey(key string) string {
	return m.prefix + ":" + key
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.opTimeout)
}

func (m *Manager) startSpan(ctx context.Context, name, driver, key string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("cache.driver", driver),
		attribute.String("cache.key", key),
	)
	return ctx, span
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Get returns the value stored at key, JSON-decoded when possible and as the
// raw string otherwise.
func (m *Manager) Get(ctx context.Context, key string) (any, bool) {
	raw, ok := m.getRaw(ctx, key)
	if !ok {
		return nil, false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw), true
	}
	return v, true
}

// GetJSON decodes the value stored at key into dst. A value that does not
// decode is treated as a miss, except that a *string dst receives the raw
// value.
func (m *Manager) GetJSON(ctx context.Context, key string, dst any) bool {
	raw, ok := m.getRaw(ctx, key)
	if !ok {
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		if s, isString := dst.(*string); isString {
			*s = string(raw)
			return true
		}
		m.recorder().RecordError("decode")
		m.logger.Warn().Err(err).Str("key", m.makeKey(key)).Msg("discarding malformed cache value")
		return false
	}
	return true
}

func (m *Manager) getRaw(ctx context.Context, key string) ([]byte, bool) {
	c := m.current()
	if c == nil {
		m.logger.Debug().Str("key", key).Msg("cache not connected, skipping get")
		return nil, false
	}

	fullKey := m.makeKey(key)
	ctx, span := m.startSpan(ctx, "cache.Get", c.metrics.driver, fullKey)
	defer span.End()

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	val, err := c.store.Get(ctx, fullKey)
	switch {
	case errors.Is(err, ErrNotFound):
		c.metrics.RecordMiss()
		span.SetAttributes(attribute.String("cache.result", "miss"))
		span.SetStatus(codes.Ok, "")
		return nil, false
	case err != nil:
		c.metrics.RecordError("get")
		failSpan(span, err)
		m.logger.Warn().Err(err).Str("key", fullKey).Msg("cache get failed")
		return nil, false
	default:
		c.metrics.RecordHit(start)
		span.SetAttributes(attribute.String("cache.result", "hit"))
		span.SetStatus(codes.Ok, "")
		return val, true
	}
}

// Set stores value under key with the default TTL.
func (m *Manager) Set(ctx context.Context, key string, value any) bool {
	return m.SetWithTTL(ctx, key, value, m.ttl)
}

// SetWithTTL stores value under key. Strings and byte slices are stored
// as-is, everything else as JSON. A non-positive ttl means the default.
func (m *Manager) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) bool {
	c := m.current()
	if c == nil {
		m.logger.Debug().Str("key", key).Msg("cache not connected, skipping set")
		return false
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	fullKey := m.makeKey(key)
	ctx, span := m.startSpan(ctx, "cache.Set", c.metrics.driver, fullKey)
	defer span.End()
	span.SetAttributes(attribute.Int64("cache.ttl", int64(ttl.Seconds())))

	b, err := encode(value)
	if err != nil {
		c.metrics.RecordError("encode")
		failSpan(span, err)
		m.logger.Warn().Err(err).Str("key", fullKey).Msg("cache value not serializable")
		return false
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	if err := c.store.SetEX(ctx, fullKey, b, ttl); err != nil {
		c.metrics.RecordError("set")
		failSpan(span, err)
		m.logger.Warn().Err(err).Str("key", fullKey).Msg("cache set failed")
		return false
	}
	c.metrics.RecordWrite(start)
	span.SetStatus(codes.Ok, "")

	return true
}

func encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// Delete removes key and reports whether it existed.
func (m *Manager) Delete(ctx context.Context, key string) bool {
	c := m.current()
	if c == nil {
		return false
	}

	fullKey := m.makeKey(key)
	ctx, span := m.startSpan(ctx, "cache.Delete", c.metrics.driver, fullKey)
	defer span.End()

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	n, err := c.store.Del(ctx, fullKey)
	if err != nil {
		c.metrics.RecordError("delete")
		failSpan(span, err)
		m.logger.Warn().Err(err).Str("key", fullKey).Msg("cache delete failed")
		return false
	}
	span.SetStatus(codes.Ok, "")

	return n > 0
}

// DeletePattern removes every key matching the namespaced glob and returns
// how many were removed. The keyspace is walked with a cursor scan so the
// backend is never blocked by a single large KEYS call, and keys are only
// deleted once the scan is complete: deleting under a live cursor can make
// it skip keys. On failure the count deleted so far is returned.
func (m *Manager) DeletePattern(ctx context.Context, pattern string) int {
	c := m.current()
	if c == nil {
		return 0
	}

	fullPattern := EscapeGlob(m.prefix) + ":" + pattern
	ctx, span := m.startSpan(ctx, "cache.DeletePattern", c.metrics.driver, fullPattern)
	defer span.End()

	// keys gathered before a scan failure are still deleted
	keys, scanErr := m.scan(ctx, c.store, fullPattern)

	var (
		deleted int64
		err     error
	)
	for start := 0; err == nil && start < len(keys); start += int(m.batch) {
		end := min(start+int(m.batch), len(keys))

		var n int64
		n, err = c.store.Del(ctx, keys[start:end]...)
		deleted += n
	}
	err = errors.Join(scanErr, err)

	count := int(deleted)
	c.metrics.RecordInvalidated(count)
	span.SetAttributes(attribute.Int("cache.deleted", count))

	if err != nil {
		c.metrics.RecordError("delete_pattern")
		failSpan(span, err)
		m.logger.Warn().Err(err).
			Str("pattern", fullPattern).
			Int("deleted", count).
			Msg("cache pattern delete incomplete")
		return count
	}
	span.SetStatus(codes.Ok, "")
	m.logger.Debug().Str("pattern", fullPattern).Int("deleted", count).Msg("cache keys deleted")

	return count
}

// scan collects the distinct keys matching the glob. fn may run
// concurrently on sharded backends.
func (m *Manager) scan(ctx context.Context, store Store, match string) ([]string, error) {
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		keys []string
	)
	err := store.ScanKeys(ctx, match, m.batch, func(batch []string) error {
		mu.Lock()
		defer mu.Unlock()
		for _, key := range batch {
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
		return nil
	})
	return keys, err
}

// HealthCheck reports whether the backend answers a liveness probe.
func (m *Manager) HealthCheck(ctx context.Context) bool {
	c := m.current()
	if c == nil {
		m.idle.RecordUp(false)
		return false
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		c.metrics.RecordUp(false)
		m.logger.Warn().Err(err).Msg("cache health check failed")
		return false
	}
	c.metrics.RecordUp(true)

	return true
}
