package chi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/db/sqlite"
	"github.com/dealscout/dealscout/internal/domain/search/query"
	listingrepo "github.com/dealscout/dealscout/internal/repository/listing"
	"github.com/dealscout/dealscout/internal/usecase/browse"
	healthuc "github.com/dealscout/dealscout/internal/usecase/health"
	searchuc "github.com/dealscout/dealscout/internal/usecase/search"
)

const testLoginURL = "https://auth.example.com/login"

// listingStore is what the listing repository and health check need from a store.
type listingStore interface {
	Select(ctx context.Context, q *query.Query) ([]db.ListingRow, error)
	Ping(ctx context.Context) error
}

type testEnv struct {
	handler  http.Handler
	sessions *browse.Registry
	store    *sqlite.Store
}

func newSeededStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Config{Path: ":memory:", Seed: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

// newTestEnv wires the server over a seeded in-memory store. The debounce
// delay is long enough that only explicit submits fetch.
func newTestEnv(t *testing.T, apiKeys ...string) *testEnv {
	t.Helper()
	store := newSeededStore(t)
	env := newTestEnvWithStore(t, store, apiKeys...)
	env.store = store
	return env
}

func newTestEnvWithStore(t *testing.T, store listingStore, apiKeys ...string) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	svc := searchuc.New(listingrepo.New(store, logger), 50, logger)
	sessions := browse.NewRegistry(100, time.Hour, func() *browse.Controller {
		return browse.NewController(svc, browse.Options{Debounce: time.Hour}, logger)
	}, nil, logger)
	t.Cleanup(sessions.Close)

	srv, err := NewServer(svc, sessions, healthuc.New(store, nil), Options{LoginURL: testLoginURL}, logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	r := gochi.NewRouter()
	srv.Register(r, BearerAuthMiddleware(apiKeys))
	return &testEnv{handler: r, sessions: sessions}
}

// browser replays the session cookie across requests.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, handler: e.handler}
}

func (b *browser) do(method, target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	b.t.Helper()
	var body io.Reader = http.NoBody
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rr := httptest.NewRecorder()
	b.handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			b.cookie = c
		}
	}
	return rr
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil)
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, target, form)
}

func (e *testEnv) controllerFor(t *testing.T, b *browser) *browse.Controller {
	t.Helper()
	if b.cookie == nil {
		t.Fatal("no session cookie")
	}
	c, ok := e.sessions.Get(b.cookie.Value)
	if !ok {
		t.Fatalf("session %s not found", b.cookie.Value)
	}
	return c
}

func countCards(body string) int {
	return strings.Count(body, `class="card"`)
}

func expectRedirect(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/search" {
		t.Errorf("Location = %q, want /search", loc)
	}
}

// failingStore fails every query.
type failingStore struct{}

var errStoreDown = errors.New("connection refused")

func (failingStore) Select(context.Context, *query.Query) ([]db.ListingRow, error) {
	return nil, errStoreDown
}

func (failingStore) Ping(context.Context) error { return errStoreDown }
