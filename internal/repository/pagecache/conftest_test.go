package pagecache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

type mockQuerier struct {
	rows  []db.ListingRow
	err   error
	calls int
}

func (m *mockQuerier) Select(_ context.Context, _ *query.Query) ([]db.ListingRow, error) {
	m.calls++
	return m.rows, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestStore(t *testing.T, inner *mockQuerier) (*Store, *mockKVStore, *prometheus.CounterVec) {
	t.Helper()
	kv := &mockKVStore{}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_page_cache_total"}, []string{"result"})
	return New(inner, kv, time.Minute, counter, zap.NewNop()), kv, counter
}
