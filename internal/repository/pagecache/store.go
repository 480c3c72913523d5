// Package pagecache caches listing query results in a key-value store.
package pagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

var cacheKeyPrefix = domain.KeyPrefix + "page:"

// querier is the listing source being decorated.
type querier interface {
	Select(ctx context.Context, q *query.Query) ([]db.ListingRow, error)
}

// kvStore is the consumer interface for the cache backend (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Store serves repeated listing queries from the cache for ttl.
// Cache failures are logged and fall through to the inner querier.
type Store struct {
	inner      querier
	kv         kvStore
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner querier,
	kv kvStore,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Store {
	return &Store{
		inner:      inner,
		kv:         kv,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Select returns cached rows for q or runs it against the inner querier.
func (s *Store) Select(ctx context.Context, q *query.Query) ([]db.ListingRow, error) {
	key, err := CacheKey(q)
	if err != nil {
		s.logger.Warn("Uncacheable query", zap.String("table", q.Table), zap.Error(err))
		return s.inner.Select(ctx, q)
	}

	if rows, ok := s.getFromCache(ctx, key); ok {
		s.incCache("hit")
		return rows, nil
	}

	s.incCache("miss")

	rows, err := s.inner.Select(ctx, q)
	if err != nil {
		return nil, err
	}

	s.putToCache(ctx, key, rows)
	return rows, nil
}

// keyCondition and keyQuery are the JSON form hashed into a cache key. Values
// keep their JSON types and quoting, so filter text cannot collide with
// query structure.
type keyCondition struct {
	Column string   `json:"c"`
	Op     query.Op `json:"o"`
	Value  any      `json:"v"`
}

type keyQuery struct {
	Table      string           `json:"t"`
	Columns    []string         `json:"s,omitempty"`
	Predicates [][]keyCondition `json:"w,omitempty"`
	Orders     []query.Order    `json:"o,omitempty"`
	From       int              `json:"f"`
	To         int              `json:"l"`
}

// CacheKey derives the cache key from a canonical JSON encoding of q,
// including its row window.
func CacheKey(q *query.Query) (string, error) {
	k := keyQuery{
		Table:   q.Table,
		Columns: q.Columns,
		Orders:  q.Orders,
		From:    q.Window.From,
		To:      q.Window.To,
	}
	for _, p := range q.Predicates {
		conds := make([]keyCondition, 0, len(p.Conditions()))
		for _, c := range p.Conditions() {
			conds = append(conds, keyCondition{Column: c.Column, Op: c.Op, Value: c.Value})
		}
		k.Predicates = append(k.Predicates, conds)
	}
	raw, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	h := sha256.Sum256(raw)
	return cacheKeyPrefix + hex.EncodeToString(h[:]), nil
}

func (s *Store) incCache(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (s *Store) getFromCache(ctx context.Context, key string) ([]db.ListingRow, bool) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("Failed to get cached page", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var rows []db.ListingRow
	if err := json.Unmarshal(data, &rows); err != nil {
		s.logger.Warn("Failed to parse cached page", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return rows, true
}

func (s *Store) putToCache(ctx context.Context, key string, rows []db.ListingRow) {
	data, err := json.Marshal(rows)
	if err != nil {
		s.logger.Warn("Failed to encode page", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.kv.SetWithTTL(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("Failed to cache page", zap.String("key", key), zap.Error(err))
	}
}
