package browse

import (
	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/result"
)

// State is the full client-side view of one search session.
type State struct {
	Filters filter.Filters
	// Results accumulates pages in fetch order. A reset replaces it.
	Results []listing.Listing
	// Offset is where the next page starts.
	Offset  int
	HasMore bool
	Loading bool
	// Generation increases on every reset; responses carry the generation
	// they were issued under and are dropped when it no longer matches.
	Generation uint64
	// Selected is the id of the listing shown in the detail overlay.
	Selected string
	// LastFetched is the row count of the most recent applied page.
	LastFetched int
	// Loaded is set once the first page of the current generation lands.
	Loaded bool
	// Pending is set in snapshots while a debounced fetch is scheduled.
	Pending bool
	// Applied holds the filters Results were fetched under. It lags Filters
	// while an edit waits for its debounced fetch or after a failed reset.
	Applied filter.Filters
}

// fetchRequest captures what a fetch was issued for.
type fetchRequest struct {
	generation uint64
	filters    filter.Filters
	offset     int
	reset      bool
}

// initialState is an empty buy-mode session.
func initialState() State {
	return State{Filters: filter.Default()}
}

func withFilter(s State, field filter.Field, value string) State {
	s.Filters = s.Filters.With(field, value)
	return s
}

func withMode(s State, m mode.Mode) State {
	s.Filters.Mode = m
	return s
}

// beginReset starts a new generation and requests its first page. The old
// results stay visible until the page lands, but the cursor is cleared so a
// failed reset cannot page the new filters onto them.
func beginReset(s State) (State, fetchRequest) {
	s.Generation++
	s.Loading = true
	s.Loaded = false
	s.Offset = 0
	s.HasMore = false
	return s, fetchRequest{generation: s.Generation, filters: s.Filters, offset: 0, reset: true}
}

// beginLoadMore requests the page after the current results, under the
// filters those results came from. ok is false when a fetch is already
// running, the current generation has not landed or the last page came back short.
func beginLoadMore(s State) (next State, req fetchRequest, ok bool) {
	if s.Loading || !s.Loaded || !s.HasMore {
		return s, fetchRequest{}, false
	}
	s.Loading = true
	return s, fetchRequest{generation: s.Generation, filters: s.Applied, offset: s.Offset}, true
}

// applyPage merges a fetched page. Responses from an older generation are
// ignored entirely, including their effect on Loading.
func applyPage(s State, req fetchRequest, p result.Page, pageSize int) (State, bool) {
	if req.generation != s.Generation {
		return s, false
	}
	if req.reset {
		s.Results = append([]listing.Listing(nil), p.Listings...)
		s.Applied = req.filters
	} else {
		s.Results = append(s.Results, p.Listings...)
	}
	s.Offset = req.offset + pageSize
	s.HasMore = p.HasMore
	s.Loading = false
	s.LastFetched = p.Len()
	s.Loaded = true
	return s, true
}

// applyError ends a failed fetch. Results, offset and HasMore stay as they were.
func applyError(s State, req fetchRequest) (State, bool) {
	if req.generation != s.Generation {
		return s, false
	}
	s.Loading = false
	return s, true
}

func selectListing(s State, id string) (State, bool) {
	for _, l := range s.Results {
		if l.ID() == id {
			s.Selected = id
			return s, true
		}
	}
	return s, false
}

func clearSelection(s State) State {
	s.Selected = ""
	return s
}

// clone copies the result slice so callers cannot alias controller state.
func (s State) clone() State {
	s.Results = append([]listing.Listing(nil), s.Results...)
	return s
}

// SelectedListing returns the listing shown in the detail overlay.
func (s State) SelectedListing() (listing.Listing, bool) {
	if s.Selected == "" {
		return listing.Listing{}, false
	}
	for _, l := range s.Results {
		if l.ID() == s.Selected {
			return l, true
		}
	}
	return listing.Listing{}, false
}

// IsEmpty reports a settled search that found nothing.
func (s State) IsEmpty() bool {
	return s.Loaded && !s.Loading && len(s.Results) == 0
}
