// Package search fetches ranked pages of active listings.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/domain"
	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/query"
	"github.com/dealscout/dealscout/internal/domain/search/result"
	"github.com/dealscout/dealscout/internal/metrics"
)

// Service runs listing page fetches and records fetch metrics.
type Service struct {
	repo     Repository
	pageSize int
	logger   *zap.Logger
}

// New creates a search service. pageSize <= 0 selects query.PageSize.
func New(repo Repository, pageSize int, logger *zap.Logger) *Service {
	if pageSize <= 0 {
		pageSize = query.PageSize
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger}
}

// PageSize returns the number of listings requested per page.
func (s *Service) PageSize() int { return s.pageSize }

// FetchPage returns the page of listings matching f that starts at offset.
func (s *Service) FetchPage(ctx context.Context, f filter.Filters, offset int) (result.Page, error) {
	if offset < 0 {
		offset = 0
	}
	if offset > query.MaxOffset(s.pageSize) {
		return result.Page{}, fmt.Errorf("fetch page at %d: %w", offset, domain.ErrInvalidOffset)
	}
	table := f.Mode.Table()
	start := time.Now()

	items, fetched, err := s.repo.Find(ctx, f, offset, s.pageSize)

	duration := time.Since(start)
	metrics.ListingFetchDuration.WithLabelValues(table).Observe(duration.Seconds())

	if err != nil {
		metrics.ListingFetchTotal.WithLabelValues(table, "error").Inc()
		return result.Page{}, fmt.Errorf("fetch page: %w", err)
	}
	metrics.ListingFetchTotal.WithLabelValues(table, "ok").Inc()

	s.logger.Debug("Listing page fetched",
		zap.String("table", table),
		zap.Int("offset", offset),
		zap.Int("rows", fetched),
		zap.Duration("duration", duration),
	)

	return result.NewFilteredPage(items, fetched, offset, s.pageSize), nil
}

// Get returns one active listing.
func (s *Service) Get(ctx context.Context, m mode.Mode, id string) (listing.Listing, error) {
	l, err := s.repo.Get(ctx, m, id)
	if err != nil {
		return listing.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}
