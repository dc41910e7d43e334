package cache

import (
	"context"
	"errors"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newRedisManager(t *testing.T, opts ...Option) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	m := NewManager(ValkeyDialer(ValkeyOptions{Addrs: []string{mr.Addr()}, PoolSize: 4}), opts...)
	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(m.Disconnect)

	return m, mr
}

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	delErr  error
	scanErr error
	// failDelAfter makes Del fail once this many keys were deleted
	failDelAfter int
	deletes      int
	pings        int
	closed       bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data:         make(map[string][]byte),
		ttls:         make(map[string]time.Duration),
		failDelAfter: -1,
	}
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) SetEX(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = val
	s.ttls[key] = ttl
	return nil
}

func (s *fakeStore) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return 0, s.delErr
	}
	var n int64
	for _, k := range keys {
		if s.failDelAfter >= 0 && s.deletes >= s.failDelAfter {
			return n, errors.New("connection reset")
		}
		if _, ok := s.data[k]; ok {
			delete(s.data, k)
			s.deletes++
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) ScanKeys(ctx context.Context, match string, batch int64, fn func(keys []string) error) error {
	if s.scanErr != nil {
		return s.scanErr
	}

	s.mu.Lock()
	var matched []string
	for k := range s.data {
		if ok, _ := path.Match(match, k); ok {
			matched = append(matched, k)
		}
	}
	s.mu.Unlock()
	sort.Strings(matched)

	for start := 0; start < len(matched); start += int(batch) {
		end := min(start+int(batch), len(matched))
		if err := fn(matched[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings++
	return s.getErr
}

func (s *fakeStore) Driver() string {
	return "fake"
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func fakeDialer(s *fakeStore) Dialer {
	return func(ctx context.Context) (Store, error) {
		return s, nil
	}
}

func newFakeManager(t *testing.T, opts ...Option) (*Manager, *fakeStore) {
	t.Helper()

	s := newFakeStore()
	m := NewManager(fakeDialer(s), opts...)
	require.NoError(t, m.Connect(context.Background()))
	return m, s
}
