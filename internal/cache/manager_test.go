package cache

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SetGet(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	require.True(t, m.Set(ctx, "summary", map[string]any{"total_volume": 500.0, "workouts_count": 2}))
	require.True(t, m.Set(ctx, "greeting", "hello"))
	require.True(t, m.Set(ctx, "days", []int{1, 2, 3}))

	// values land under the namespace
	raw, err := mr.Get("fitmetrics:greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", raw)

	raw, err = mr.Get("fitmetrics:summary")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_volume":500,"workouts_count":2}`, raw)

	got, ok := m.Get(ctx, "summary")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"total_volume": 500.0, "workouts_count": 2.0}, got)

	got, ok = m.Get(ctx, "greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", got)

	got, ok = m.Get(ctx, "days")
	require.True(t, ok)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, got)

	_, ok = m.Get(ctx, "absent")
	assert.False(t, ok)
}

func TestManager_GetJSON(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	type summary struct {
		Total float64 `json:"total_volume"`
		Count int     `json:"workouts_count"`
	}

	require.True(t, m.Set(ctx, "s", summary{Total: 42.5, Count: 3}))

	var got summary
	require.True(t, m.GetJSON(ctx, "s", &got))
	assert.Equal(t, summary{Total: 42.5, Count: 3}, got)

	t.Run("malformed value is a miss", func(t *testing.T) {
		mr.Set("fitmetrics:broken", "{not json")

		var s summary
		assert.False(t, m.GetJSON(ctx, "broken", &s))
	})

	t.Run("string destination takes raw value", func(t *testing.T) {
		mr.Set("fitmetrics:plain", "just text")

		var s string
		require.True(t, m.GetJSON(ctx, "plain", &s))
		assert.Equal(t, "just text", s)
	})
}

func TestManager_TTL(t *testing.T) {
	m, mr := newRedisManager(t, WithDefaultTTL(time.Minute))
	ctx := context.Background()

	require.True(t, m.Set(ctx, "default", 1))
	require.True(t, m.SetWithTTL(ctx, "custom", 1, 10*time.Minute))
	require.True(t, m.SetWithTTL(ctx, "zero", 1, 0))

	assert.Equal(t, time.Minute, mr.TTL("fitmetrics:default"))
	assert.Equal(t, 10*time.Minute, mr.TTL("fitmetrics:custom"))
	assert.Equal(t, time.Minute, mr.TTL("fitmetrics:zero"))

	mr.FastForward(2 * time.Minute)

	_, ok := m.Get(ctx, "default")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "custom")
	assert.True(t, ok)
}

func TestManager_Delete(t *testing.T) {
	m, _ := newRedisManager(t)
	ctx := context.Background()

	require.True(t, m.Set(ctx, "k", "v"))
	assert.True(t, m.Delete(ctx, "k"))
	assert.False(t, m.Delete(ctx, "k"))
}

func TestManager_DeletePattern(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	for i := range 250 {
		mr.Set(fmt.Sprintf("fitmetrics:metrics:summary:owner:a:days:%d", i), "1")
	}
	mr.Set("fitmetrics:metrics:summary:owner:b:days:7", "1")
	mr.Set("otherservice:metrics:summary:owner:a:days:7", "1")

	assert.Equal(t, 250, m.DeletePattern(ctx, "metrics:*:owner:a:*"))
	assert.True(t, mr.Exists("fitmetrics:metrics:summary:owner:b:days:7"))
	assert.True(t, mr.Exists("otherservice:metrics:summary:owner:a:days:7"))

	assert.Equal(t, 0, m.DeletePattern(ctx, "metrics:*:owner:a:*"))
}

func TestManager_DeletePatternBatches(t *testing.T) {
	m, s := newFakeManager(t, WithScanBatch(10))
	ctx := context.Background()

	for i := range 35 {
		require.True(t, m.Set(ctx, fmt.Sprintf("x:%02d", i), i))
	}

	var batches atomic.Int32
	counting := &countingStore{fakeStore: s, batches: &batches}
	m.conn.store = counting

	assert.Equal(t, 35, m.DeletePattern(ctx, "x:*"))
	assert.Equal(t, int32(4), batches.Load())
}

type countingStore struct {
	*fakeStore
	batches *atomic.Int32
}

func (c *countingStore) ScanKeys(ctx context.Context, match string, batch int64, fn func(keys []string) error) error {
	return c.fakeStore.ScanKeys(ctx, match, batch, func(keys []string) error {
		c.batches.Add(1)
		return fn(keys)
	})
}

func TestManager_DeletePatternPartialFailure(t *testing.T) {
	m, s := newFakeManager(t, WithScanBatch(2))
	ctx := context.Background()

	for i := range 5 {
		require.True(t, m.Set(ctx, fmt.Sprintf("x:%d", i), i))
	}
	s.failDelAfter = 3

	assert.Equal(t, 3, m.DeletePattern(ctx, "x:*"))
}

func TestManager_DeletePatternUnsupported(t *testing.T) {
	m, s := newFakeManager(t)
	s.scanErr = ErrScanUnsupported

	require.True(t, m.Set(context.Background(), "x:1", 1))
	assert.Equal(t, 0, m.DeletePattern(context.Background(), "x:*"))
}

func TestManager_PrefixIsNotAGlob(t *testing.T) {
	m, s := newFakeManager(t, WithPrefix("svc*"))
	ctx := context.Background()

	require.True(t, m.Set(ctx, "k:1", 1))
	s.data["svcX:k:2"] = []byte("1")

	assert.Equal(t, 1, m.DeletePattern(ctx, "k:*"))
	assert.Contains(t, s.data, "svcX:k:2")
}

func TestManager_Disconnected(t *testing.T) {
	dialErr := errors.New("connection refused")
	m := NewManager(func(ctx context.Context) (Store, error) {
		return nil, dialErr
	})
	ctx := context.Background()

	assert.ErrorIs(t, m.Connect(ctx), dialErr)
	assert.False(t, m.Connected())
	assert.Equal(t, "none", m.Driver())

	assert.NotPanics(t, func() {
		_, ok := m.Get(ctx, "k")
		assert.False(t, ok)

		var v map[string]any
		assert.False(t, m.GetJSON(ctx, "k", &v))
		assert.False(t, m.Set(ctx, "k", "v"))
		assert.False(t, m.Delete(ctx, "k"))
		assert.Equal(t, 0, m.DeletePattern(ctx, "*"))
		assert.False(t, m.HealthCheck(ctx))
		m.Disconnect()
	})
}

func TestManager_BackendErrors(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	require.True(t, m.Set(ctx, "k", "v"))
	require.True(t, m.HealthCheck(ctx))

	mr.SetError("ERR injected failure")

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, m.Set(ctx, "k", "v2"))
	assert.False(t, m.Delete(ctx, "k"))
	assert.Equal(t, 0, m.DeletePattern(ctx, "*"))

	mr.SetError("")

	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestManager_UnserializableValue(t *testing.T) {
	m, s := newFakeManager(t)

	assert.False(t, m.Set(context.Background(), "ch", make(chan int)))
	assert.Empty(t, s.data)
}

func TestManager_ConnectLifecycle(t *testing.T) {
	s := newFakeStore()
	var dials atomic.Int32
	m := NewManager(func(ctx context.Context) (Store, error) {
		dials.Add(1)
		return s, nil
	})
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx))
	require.NoError(t, m.Connect(ctx))
	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, "fake", m.Driver())
	assert.True(t, m.HealthCheck(ctx))

	m.Disconnect()
	assert.True(t, s.closed)
	assert.False(t, m.Connected())

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)
}

// offsetCursorStore scans like miniredis: the cursor is an offset into the
// live, sorted key list, so deletes made mid-scan shift later keys back.
type offsetCursorStore struct {
	*fakeStore
}

func (o *offsetCursorStore) ScanKeys(ctx context.Context, match string, batch int64, fn func(keys []string) error) error {
	cursor := 0
	for {
		o.mu.Lock()
		var live []string
		for k := range o.data {
			if ok, _ := path.Match(match, k); ok {
				live = append(live, k)
			}
		}
		o.mu.Unlock()
		sort.Strings(live)

		if cursor >= len(live) {
			return nil
		}
		end := min(cursor+int(batch), len(live))
		if err := fn(live[cursor:end]); err != nil {
			return err
		}
		cursor = end
	}
}

func TestManager_DeletePatternOffsetCursor(t *testing.T) {
	m, s := newFakeManager(t, WithScanBatch(10))
	ctx := context.Background()

	for i := range 95 {
		require.True(t, m.Set(ctx, fmt.Sprintf("metrics:summary:owner:a:days:%02d", i), i))
	}
	m.conn.store = &offsetCursorStore{s}

	assert.Equal(t, 95, m.DeletePattern(ctx, "metrics:*:owner:a:*"))
	assert.Empty(t, s.data)
}

// failingScanStore hands out one batch, then fails the scan.
type failingScanStore struct {
	*fakeStore
}

func (f *failingScanStore) ScanKeys(ctx context.Context, match string, batch int64, fn func(keys []string) error) error {
	return f.fakeStore.ScanKeys(ctx, match, batch, func(keys []string) error {
		if err := fn(keys); err != nil {
			return err
		}
		return errors.New("node unreachable")
	})
}

func TestManager_DeletePatternScanFailure(t *testing.T) {
	m, s := newFakeManager(t, WithScanBatch(2))
	ctx := context.Background()

	for i := range 5 {
		require.True(t, m.Set(ctx, fmt.Sprintf("x:%d", i), i))
	}
	m.conn.store = &failingScanStore{s}

	assert.Equal(t, 2, m.DeletePattern(ctx, "x:*"))
	assert.Len(t, s.data, 3)
}
