package listing

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	selectFn func(ctx context.Context, q *query.Query) ([]db.ListingRow, error)
}

func (m *mockStore) Select(ctx context.Context, q *query.Query) ([]db.ListingRow, error) {
	if m.selectFn != nil {
		return m.selectFn(ctx, q)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, zap.NewNop()), ms
}

func ptr[T any](v T) *T { return &v }
