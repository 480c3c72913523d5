package dealscout

import (
	"context"
	"time"

	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/usecase/browse"
)

// Session is an interactive search: field edits are debounced into one reset
// fetch, mode switches fetch at once and LoadMore appends the next page.
// It is safe for concurrent use.
type Session struct {
	ctrl *browse.Controller
	obs  *observer
}

// SessionState is a snapshot of a session.
type SessionState struct {
	Filters  Filters
	Listings []Listing
	HasMore  bool
	Loading  bool
	// Pending is true while a debounced fetch is scheduled.
	Pending bool
	// Loaded is true once the first page of the current filters landed.
	Loaded   bool
	Selected string
}

// SetTerm updates the address or neighborhood term. Debounced.
func (s *Session) SetTerm(v string) { s.ctrl.SetTerm(v) }

// SetZip updates the zip code filter. Debounced.
func (s *Session) SetZip(v string) { s.ctrl.SetZip(v) }

// SetMaxPrice updates the price or rent cap. Debounced.
func (s *Session) SetMaxPrice(v string) { s.ctrl.SetMaxPrice(v) }

// SetBedrooms updates the minimum bedroom count. Debounced.
func (s *Session) SetBedrooms(v string) { s.ctrl.SetBedrooms(v) }

// SetMode switches between Buy and Rent and refetches the first page.
// A pending debounced fetch is dropped.
func (s *Session) SetMode(ctx context.Context, m Mode) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("session_set_mode", start, err, "mode", m) }()

	dm, err := mode.Parse(string(m))
	if err != nil {
		return err
	}
	s.ctrl.SetMode(ctx, dm)
	return nil
}

// Refresh discards the results and loads the first page for the current filters.
func (s *Session) Refresh(ctx context.Context) {
	start := time.Now()
	s.ctrl.ResetAndFetch(ctx)
	s.obs.observe("session_refresh", start, nil)
}

// Flush runs a pending debounced fetch now. It reports whether one was pending.
func (s *Session) Flush(ctx context.Context) bool {
	start := time.Now()
	ran := s.ctrl.Flush(ctx)
	s.obs.observe("session_flush", start, nil, "ran", ran)
	return ran
}

// LoadMore appends the next page. It is a no-op while loading or when the
// last page was short.
func (s *Session) LoadMore(ctx context.Context) {
	start := time.Now()
	s.ctrl.LoadMore(ctx)
	s.obs.observe("session_load_more", start, nil)
}

// Select marks a listing from the current results as selected.
// ok is false when id is not among them.
func (s *Session) Select(id string) (Listing, bool) {
	l, ok := s.ctrl.Select(id)
	if !ok {
		return Listing{}, false
	}
	return listingFromDomain(l), true
}

// ClearSelection drops the selected listing.
func (s *Session) ClearSelection() { s.ctrl.ClearSelection() }

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	st := s.ctrl.Snapshot()
	return SessionState{
		Filters:  filtersFromDomain(st.Filters),
		Listings: listingsFromDomain(st.Results),
		HasMore:  st.HasMore,
		Loading:  st.Loading,
		Pending:  st.Pending,
		Loaded:   st.Loaded,
		Selected: st.Selected,
	}
}

// Close stops the debounce timer and waits for in-flight fetches.
func (s *Session) Close() { s.ctrl.Close() }
