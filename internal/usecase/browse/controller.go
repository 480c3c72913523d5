// Package browse drives one interactive listing search: it holds the filter
// state, debounces edits into fetches and merges fetched pages.
package browse

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/query"
	"github.com/dealscout/dealscout/internal/domain/search/result"
)

// Fetcher loads one page of listings.
type Fetcher interface {
	FetchPage(ctx context.Context, f filter.Filters, offset int) (result.Page, error)
}

// Options tune a controller. Zero values select the defaults.
type Options struct {
	PageSize  int
	Debounce  time.Duration
	AfterFunc AfterFunc
	// FetchTimeout bounds fetches started by the debounce timer.
	FetchTimeout time.Duration
}

// Controller owns a session's State. Transitions run under mu; the remote
// fetch runs outside it, so fetches may overlap and the newest generation wins.
type Controller struct {
	mu       sync.Mutex
	state    State
	closed   bool
	fetcher  Fetcher
	debounce *Debouncer
	pageSize int
	timeout  time.Duration
	logger   *zap.Logger

	// base is cancelled on Close and parents timer-driven fetches.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a controller in its initial state. It does not fetch.
func NewController(fetcher Fetcher, opts Options, logger *zap.Logger) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = query.PageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		state:    initialState(),
		fetcher:  fetcher,
		debounce: NewDebouncer(opts.Debounce, opts.AfterFunc),
		pageSize: opts.PageSize,
		timeout:  opts.FetchTimeout,
		logger:   logger,
		base:     base,
		cancel:   cancel,
	}
}

// SetTerm updates the address/neighborhood search term.
func (c *Controller) SetTerm(v string) { c.SetFilter(filter.Term, v) }

// SetZip updates the zip code substring.
func (c *Controller) SetZip(v string) { c.SetFilter(filter.Zip, v) }

// SetMaxPrice updates the price or rent cap.
func (c *Controller) SetMaxPrice(v string) { c.SetFilter(filter.MaxPrice, v) }

// SetBedrooms updates the bedroom floor.
func (c *Controller) SetBedrooms(v string) { c.SetFilter(filter.Bedrooms, v) }

// SetFilter stores a field edit and re-arms the debounce timer. The reset
// fetch runs once the quiet period passes without another edit. Setting a
// field to its current value does nothing.
func (c *Controller) SetFilter(field filter.Field, value string) {
	c.mu.Lock()
	if c.closed || c.state.Filters.Get(field) == value {
		c.mu.Unlock()
		return
	}
	c.state = withFilter(c.state, field, value)
	c.mu.Unlock()

	c.debounce.Trigger(c.debouncedReset)
}

// SetMode switches between buy and rent. The pending debounced fetch is
// dropped and a reset fetch runs immediately with the current field values.
func (c *Controller) SetMode(ctx context.Context, m mode.Mode) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = withMode(c.state, m)
	c.mu.Unlock()

	c.debounce.Cancel()
	c.ResetAndFetch(ctx)
}

// Flush runs the pending debounced fetch now. It reports whether one was
// pending; without one it does nothing.
func (c *Controller) Flush(ctx context.Context) bool {
	if !c.debounce.Cancel() {
		return false
	}
	c.ResetAndFetch(ctx)
	return true
}

// ResetAndFetch starts a new generation and replaces the results with its
// first page once it arrives. It blocks until the fetch completes.
func (c *Controller) ResetAndFetch(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	var req fetchRequest
	c.state, req = beginReset(c.state)
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	c.run(ctx, req)
}

// LoadMore appends the next page. It is a no-op while a fetch is running or
// once a short page has been seen.
func (c *Controller) LoadMore(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	var (
		req fetchRequest
		ok  bool
	)
	c.state, req, ok = beginLoadMore(c.state)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	c.run(ctx, req)
}

// Select opens the detail overlay for a listing in the current results.
func (c *Controller) Select(id string) (listing.Listing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ok bool
	c.state, ok = selectListing(c.state, id)
	if !ok {
		return listing.Listing{}, false
	}
	return c.state.SelectedListing()
}

// ClearSelection closes the detail overlay.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = clearSelection(c.state)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	pending := c.debounce.Pending()
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state.clone()
	s.Pending = pending
	return s
}

// Close stops the debounce timer, cancels timer-driven fetches and waits for
// in-flight fetches to return. Later calls are no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.debounce.Cancel()
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) debouncedReset() {
	ctx, cancel := context.WithTimeout(c.base, c.timeout)
	defer cancel()
	c.ResetAndFetch(ctx)
}

func (c *Controller) run(ctx context.Context, req fetchRequest) {
	page, err := c.fetcher.FetchPage(ctx, req.filters, req.offset)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		var applied bool
		c.state, applied = applyError(c.state, req)
		c.logger.Warn("Listing fetch failed",
			zap.String("mode", string(req.filters.Mode)),
			zap.Int("offset", req.offset),
			zap.Uint64("generation", req.generation),
			zap.Bool("stale", !applied),
			zap.Error(err),
		)
		return
	}

	var applied bool
	c.state, applied = applyPage(c.state, req, page, c.pageSize)
	if !applied {
		c.logger.Debug("Discarding stale listing page",
			zap.Uint64("generation", req.generation),
			zap.Uint64("current", c.state.Generation),
		)
	}
}
