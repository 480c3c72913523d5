package listing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain"
	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

// store is the consumer interface for listing reads (ISP).
type store interface {
	Select(ctx context.Context, q *query.Query) ([]db.ListingRow, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates a listing repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// Find returns one page of active listings matching f, ranked by score.
// Rows that cannot be mapped to a listing are skipped so one bad record does
// not blank the page; the slice may therefore be shorter than the rows fetched.
// fetched reports the raw row count, which drives the has-more decision.
func (r *Repo) Find(
	ctx context.Context, f filter.Filters, offset, pageSize int,
) (items []listing.Listing, fetched int, err error) {
	q := query.Compose(f, offset, pageSize)

	rows, err := r.store.Select(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: select %s: %w", domain.ErrRemoteQuery, q.Table, err)
	}

	kind := f.Mode.Kind()
	items = make([]listing.Listing, 0, len(rows))
	for _, row := range rows {
		l, err := toListing(row, kind)
		if err != nil {
			r.logger.Warn("Skipping listing row",
				zap.String("table", q.Table),
				zap.String("id", string(row.ID)),
				zap.Error(err),
			)
			continue
		}
		items = append(items, l)
	}
	return items, len(rows), nil
}

// Get returns one active listing by id.
func (r *Repo) Get(ctx context.Context, m mode.Mode, id string) (listing.Listing, error) {
	if !m.IsValid() {
		return listing.Listing{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, m)
	}
	q := query.ByID(m.Table(), id)

	rows, err := r.store.Select(ctx, q)
	if err != nil {
		return listing.Listing{}, fmt.Errorf("%w: get %s/%s: %w", domain.ErrRemoteQuery, q.Table, id, err)
	}
	if len(rows) == 0 {
		return listing.Listing{}, fmt.Errorf("listing %s/%s: %w", q.Table, id, domain.ErrNotFound)
	}

	return toListing(rows[0], m.Kind())
}
