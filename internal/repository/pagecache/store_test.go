package pagecache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

func testQuery(offset int) *query.Query {
	return query.Compose(filter.Default().With(filter.Zip, "10009"), offset, query.PageSize)
}

func TestSelect_CacheMiss(t *testing.T) {
	price := 850000.0
	inner := &mockQuerier{rows: []db.ListingRow{{ID: "1", Address: "a", Price: &price, Status: "active"}}}
	s, kv, counter := newTestStore(t, inner)

	var stored []byte
	var storedTTL time.Duration
	kv.setFn = func(_ context.Context, _ string, value []byte, ttl time.Duration) error {
		stored, storedTTL = value, ttl
		return nil
	}

	rows, err := s.Select(context.Background(), testQuery(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || inner.calls != 1 {
		t.Fatalf("rows = %d, inner calls = %d", len(rows), inner.calls)
	}
	if len(stored) == 0 || storedTTL != time.Minute {
		t.Errorf("cache put: %d bytes, ttl %v", len(stored), storedTTL)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss count = %v", got)
	}
}

func TestSelect_CacheHit(t *testing.T) {
	inner := &mockQuerier{}
	s, kv, counter := newTestStore(t, inner)

	kv.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte(`[{"id":"7","address":"9 Avenue B","price":500000,"status":"active","images":["x.jpg"]}]`), nil
	}

	rows, err := s.Select(context.Background(), testQuery(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("inner called on hit")
	}
	if len(rows) != 1 || rows[0].ID != "7" || *rows[0].Price != 500000 || rows[0].Images[0] != "x.jpg" {
		t.Errorf("rows = %+v", rows)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit count = %v", got)
	}
}

func TestSelect_CacheErrorsFallThrough(t *testing.T) {
	inner := &mockQuerier{rows: []db.ListingRow{}}
	s, kv, _ := newTestStore(t, inner)

	kv.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: errors.New("connection refused")}
	}
	kv.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return &db.Error{Op: db.OpSet, Err: errors.New("connection refused")}
	}

	if _, err := s.Select(context.Background(), testQuery(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d", inner.calls)
	}
}

func TestSelect_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockQuerier{rows: []db.ListingRow{}}
	s, kv, _ := newTestStore(t, inner)

	kv.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("{not json"), nil
	}

	if _, err := s.Select(context.Background(), testQuery(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d", inner.calls)
	}
}

func TestSelect_InnerErrorNotCached(t *testing.T) {
	inner := &mockQuerier{err: errors.New("boom")}
	s, kv, _ := newTestStore(t, inner)

	kv.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		t.Error("failed result must not be cached")
		return nil
	}

	if _, err := s.Select(context.Background(), testQuery(0)); err == nil {
		t.Fatal("expected error")
	}
}

func mustKey(t *testing.T, q *query.Query) string {
	t.Helper()
	k, err := CacheKey(q)
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	return k
}

func TestCacheKey(t *testing.T) {
	a, b := mustKey(t, testQuery(0)), mustKey(t, testQuery(50))
	if a == b {
		t.Error("different windows share a key")
	}
	if a != mustKey(t, testQuery(0)) {
		t.Error("key is not stable")
	}
	if !strings.HasPrefix(a, domain.KeyPrefix+"page:") {
		t.Errorf("key = %q", a)
	}
}

func TestCacheKey_FilterTextCannotMimicStructure(t *testing.T) {
	// Both render as "... WHERE status EQ active AND zip_code ILIKE 10009" in debug form.
	one := query.From("sales").Eq("status", "active AND zip_code ILIKE 10009").Range(0, 49).MustBuild()
	two := query.From("sales").Eq("status", "active").ILike("zip_code", "10009").Range(0, 49).MustBuild()
	if one.String() != two.String() {
		t.Fatalf("debug forms differ: %q vs %q", one.String(), two.String())
	}
	if mustKey(t, one) == mustKey(t, two) {
		t.Error("distinct queries share a cache key")
	}
}
