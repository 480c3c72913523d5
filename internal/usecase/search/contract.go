package search

import (
	"context"

	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
)

// Repository defines the storage contract for listing search.
type Repository interface {
	// Find returns the mapped listings of one page and the raw row count fetched.
	Find(ctx context.Context, f filter.Filters, offset, pageSize int) ([]listing.Listing, int, error)
	Get(ctx context.Context, m mode.Mode, id string) (listing.Listing, error)
}
