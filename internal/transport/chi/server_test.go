package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestMarketingPages(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	for _, path := range []string{"/", "/manifesto", "/pricing", "/neighborhoods", "/login", "/join"} {
		t.Run(path, func(t *testing.T) {
			rr := b.get(path)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}

	if body := b.get("/login").Body.String(); !strings.Contains(body, testLoginURL) {
		t.Error("login page does not link to the sign-in provider")
	}
	if body := b.get("/neighborhoods").Body.String(); !strings.Contains(body, "/search?term=Chelsea") {
		t.Error("neighborhoods page does not link to a prefiltered search")
	}
}

func TestNotFoundPage(t *testing.T) {
	env := newTestEnv(t)
	rr := env.browser(t).get("/nowhere")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestStatic(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	for _, path := range []string{"/static/app.js", "/static/app.css", "/static/img/listing-1.svg"} {
		if rr := b.get(path); rr.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rr.Code)
		}
	}
}

func TestSearchPage_InitialLoad(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rr := b.get("/search")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if b.cookie == nil {
		t.Fatal("no session cookie set")
	}
	if !b.cookie.HttpOnly || b.cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags = %+v", b.cookie)
	}

	body := rr.Body.String()
	if n := countCards(body); n != 50 {
		t.Errorf("cards = %d, want 50", n)
	}
	if !strings.Contains(body, "50 undervalued listings found") {
		t.Error("missing result count")
	}
	if !strings.Contains(body, "Load more") {
		t.Error("missing load more button")
	}
	if !strings.Contains(body, "100 Avenue B, East Village") {
		t.Error("top-scored listing missing from first page")
	}
	if !strings.Contains(body, "/static/img/listing-1.svg") {
		t.Error("card image missing")
	}

	// Same session: no new cookie, no refetch.
	before := b.cookie.Value
	b.get("/search")
	if b.cookie.Value != before {
		t.Error("session cookie replaced on second visit")
	}
}

func TestSearch_LoadMoreUntilExhausted(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.get("/search")

	expectRedirect(t, b.post("/search/more", nil))
	if n := countCards(b.get("/search/results").Body.String()); n != 100 {
		t.Fatalf("cards after one load more = %d, want 100", n)
	}

	expectRedirect(t, b.post("/search/more", nil))
	body := b.get("/search/results").Body.String()
	if n := countCards(body); n != 113 {
		t.Fatalf("cards after two load mores = %d, want 113", n)
	}
	if strings.Contains(body, "Load more") {
		t.Error("load more shown after a short page")
	}
	if !strings.Contains(body, "We're still scraping the good stuff...") {
		t.Error("missing end-of-results message")
	}

	st := env.controllerFor(t, b).Snapshot()
	seen := make(map[string]bool, len(st.Results))
	for _, l := range st.Results {
		if seen[l.ID()] {
			t.Fatalf("duplicate listing %s", l.ID())
		}
		seen[l.ID()] = true
	}
}

func TestSearch_SubmitFiltersFetchesNow(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.get("/search")

	expectRedirect(t, b.post("/search/filters", url.Values{
		"term":   {"chelsea"},
		"zip":    {""},
		"submit": {"1"},
	}))

	body := b.get("/search").Body.String()
	if n := countCards(body); n != 14 {
		t.Errorf("cards = %d, want 14", n)
	}
	if !strings.Contains(body, `value="chelsea"`) {
		t.Error("form does not echo the term")
	}
	for _, l := range env.controllerFor(t, b).Snapshot().Results {
		if l.Common().Neighborhood != "Chelsea" {
			t.Errorf("listing %s in %s", l.ID(), l.Common().Neighborhood)
		}
	}
}

func TestSearch_FieldEditIsDebounced(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.get("/search")

	rr := b.do(http.MethodPost, "/search/filters", url.Values{"term": {"harlem"}}, "X-Requested-With", "fetch")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}

	st := env.controllerFor(t, b).Snapshot()
	if st.Filters.Term != "harlem" {
		t.Errorf("term = %q, want harlem", st.Filters.Term)
	}
	if !st.Pending {
		t.Error("edit did not arm the debounce")
	}
	if len(st.Results) != 50 {
		t.Errorf("results changed before the quiet period: %d", len(st.Results))
	}

	body := b.get("/search/results").Body.String()
	if !strings.Contains(body, `data-busy="true"`) {
		t.Error("results fragment not marked busy while a fetch is pending")
	}
	if strings.Contains(body, "<html") {
		t.Error("results fragment rendered the full layout")
	}
}

func TestSearch_WholeFormEditsApplyInOrder(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.get("/search")

	edits := []string{"c", "ch", "chel"}
	for _, term := range edits {
		rr := b.do(http.MethodPost, "/search/filters", url.Values{
			"term":      {term},
			"zip":       {""},
			"max_price": {""},
			"bedrooms":  {""},
		}, "X-Requested-With", "fetch")
		if rr.Code != http.StatusNoContent {
			t.Fatalf("%s: status = %d, want 204", term, rr.Code)
		}
	}

	c := env.controllerFor(t, b)
	st := c.Snapshot()
	if st.Filters.Term != "chel" || st.Filters.Zip != "" || st.Filters.Bedrooms != "" {
		t.Errorf("filters = %+v, want the last edit", st.Filters)
	}
	if !st.Pending {
		t.Error("edits did not arm the debounce")
	}

	// Restating unchanged fields is not an edit.
	c.Flush(context.Background())
	b.do(http.MethodPost, "/search/filters", url.Values{"term": {"chel"}, "zip": {""}}, "X-Requested-With", "fetch")
	if c.Snapshot().Pending {
		t.Error("unchanged form armed the debounce")
	}
}

func TestSearch_ModeSwitch(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.get("/search")

	expectRedirect(t, b.post("/search/mode", url.Values{"mode": {"rent"}}))

	body := b.get("/search").Body.String()
	if n := countCards(body); n != 50 {
		t.Errorf("rental cards = %d, want 50", n)
	}
	if !strings.Contains(body, "/mo") {
		t.Error("rental prices missing monthly suffix")
	}
	if !strings.Contains(body, "Max /month") {
		t.Error("price label not switched to rent")
	}

	b.post("/search/more", nil)
	if n := len(env.controllerFor(t, b).Snapshot().Results); n != 76 {
		t.Errorf("rentals after load more = %d, want 76", n)
	}

	rr := b.post("/search/mode", url.Values{"mode": {"lease"}})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid mode status = %d, want 400", rr.Code)
	}
}

func TestSearch_QueryParamsPrefilter(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	body := b.get("/search?term=Chelsea").Body.String()
	if n := countCards(body); n != 14 {
		t.Errorf("cards = %d, want 14", n)
	}

	fresh := env.browser(t)
	fresh.get("/search?mode=rent&bedrooms=3")
	st := env.controllerFor(t, fresh).Snapshot()
	if !st.Filters.Mode.IsRent() || st.Filters.Bedrooms != "3" {
		t.Errorf("filters = %+v", st.Filters)
	}
	if len(st.Results) != 19 {
		t.Errorf("rentals with 3+ bedrooms = %d, want 19", len(st.Results))
	}
	for _, l := range st.Results {
		if l.Common().Bedrooms < 3 || l.Rental() == nil {
			t.Errorf("listing %s does not match rent/3+ beds", l.ID())
		}
	}
}

func TestSearch_ListingOverlay(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.get("/search")

	rr := b.get("/search/listings/s-001")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `id="overlay"`) {
		t.Error("overlay not rendered")
	}
	if got := env.controllerFor(t, b).Snapshot().Selected; got != "s-001" {
		t.Errorf("Selected = %q, want s-001", got)
	}

	frag := b.get("/search/listings/s-001?fragment=1").Body.String()
	if !strings.HasPrefix(strings.TrimSpace(frag), `<div class="overlay"`) {
		t.Errorf("fragment = %.60q", frag)
	}

	expectRedirect(t, b.post("/search/close", nil))
	if got := env.controllerFor(t, b).Snapshot().Selected; got != "" {
		t.Errorf("Selected after close = %q", got)
	}
}

func TestSearch_ListingOutsideResults(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.get("/search?term=Chelsea")

	// s-001 is in East Village, so it comes from a direct lookup.
	rr := b.get("/search/listings/s-001")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "100 Avenue B, East Village") {
		t.Error("overlay missing the listing")
	}

	if rr := b.get("/search/listings/s-999"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown listing status = %d, want 404", rr.Code)
	}
	// s-017 is off the market.
	if rr := b.get("/search/listings/s-017"); rr.Code != http.StatusNotFound {
		t.Errorf("inactive listing status = %d, want 404", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rr := b.get("/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Checks["database"] != "ok" || resp.Version == "" {
		t.Errorf("health = %+v", resp)
	}

	env.store.Close()
	if rr := b.get("/health"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status with closed store = %d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.browser(t).get("/metrics"); rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestAuth_OnlyGuardsAPI(t *testing.T) {
	env := newTestEnv(t, "secret")
	b := env.browser(t)

	if rr := b.get("/api/v1/listings"); rr.Code != http.StatusUnauthorized {
		t.Errorf("api without key = %d, want 401", rr.Code)
	}
	if rr := b.do(http.MethodGet, "/api/v1/listings", nil, "Authorization", "Bearer secret"); rr.Code != http.StatusOK {
		t.Errorf("api with key = %d, want 200", rr.Code)
	}
	for _, path := range []string{"/search", "/health", "/"} {
		if rr := b.get(path); rr.Code != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, rr.Code)
		}
	}
}

func TestUpdateFilters_MalformedForm(t *testing.T) {
	env := newTestEnv(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/search/filters", strings.NewReader("%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed form status = %d, want 400", rr.Code)
	}
}
