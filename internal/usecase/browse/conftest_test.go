package browse

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/query"
	"github.com/dealscout/dealscout/internal/domain/search/result"
)

// --- fake timers ---

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	return &fakeTimerHandle{clock: c, t: t}
}

type fakeTimerHandle struct {
	clock *fakeClock
	t     *fakeTimer
}

func (h *fakeTimerHandle) Stop() bool {
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	active := !h.t.stopped && !h.t.fired
	h.t.stopped = true
	return active
}

// pending returns the number of armed timers.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fire runs every armed timer synchronously.
func (c *fakeClock) fire() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// --- fake fetcher ---

type fetchCall struct {
	filters filter.Filters
	offset  int
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	fn    func(call int, f filter.Filters, offset int) (result.Page, error)
}

func (m *fakeFetcher) FetchPage(_ context.Context, f filter.Filters, offset int) (result.Page, error) {
	m.mu.Lock()
	n := len(m.calls)
	m.calls = append(m.calls, fetchCall{filters: f, offset: offset})
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return result.NewPage(nil, offset, query.PageSize), nil
	}
	return fn(n, f, offset)
}

func (m *fakeFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *fakeFetcher) call(i int) fetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

// --- helpers ---

func newTestController(t *testing.T, fetcher *fakeFetcher) (*Controller, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	c := NewController(fetcher, Options{AfterFunc: clock.AfterFunc}, zap.NewNop())
	t.Cleanup(c.Close)
	return c, clock
}

// page builds n listings of the kind for m with ids prefixed by tag.
func page(m mode.Mode, tag string, offset, n int) result.Page {
	out := make([]listing.Listing, n)
	for i := range out {
		c := listing.Common{ID: fmt.Sprintf("%s-%d", tag, offset+i), Status: listing.StatusActive}
		if m == mode.Rent {
			out[i] = listing.NewRental(listing.Rental{Common: c})
		} else {
			out[i] = listing.NewSale(listing.Sale{Common: c})
		}
	}
	return result.NewPage(out, offset, query.PageSize)
}

func itoa(i int) string { return fmt.Sprint(i) }

func nopLogger() *zap.Logger { return zap.NewNop() }
