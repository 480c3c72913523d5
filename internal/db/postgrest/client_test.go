package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

func TestEncode_ZipScenario(t *testing.T) {
	q := query.Compose(filter.Default().With(filter.Zip, "10009"), 0, query.PageSize)

	raw, err := Encode(q)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	v, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	want := map[string]string{
		"select":   "*",
		"status":   "eq.active",
		"zip_code": "ilike.*10009*",
		"order":    "score.desc",
	}
	for k, w := range want {
		if got := v.Get(k); got != w {
			t.Errorf("%s = %q, want %q", k, got, w)
		}
	}
	if len(v) != len(want) {
		t.Errorf("unexpected params: %v", v)
	}
	if got := RangeHeader(q.Window); got != "0-49" {
		t.Errorf("RangeHeader() = %q, want 0-49", got)
	}
}

func TestEncode_AllFilters(t *testing.T) {
	f := filter.Default().
		With(filter.Term, "soho").
		With(filter.MaxPrice, "$4,000").
		With(filter.Bedrooms, "2")
	f.Mode = mode.Rent

	raw, err := Encode(query.Compose(f, 50, query.PageSize))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	v, _ := url.ParseQuery(raw)

	if got := v.Get("or"); got != "(address.ilike.*soho*,neighborhood.ilike.*soho*)" {
		t.Errorf("or = %q", got)
	}
	if got := v.Get("rent"); got != "lte.4000" {
		t.Errorf("rent = %q", got)
	}
	if got := v.Get("bedrooms"); got != "gte.2" {
		t.Errorf("bedrooms = %q", got)
	}
}

func TestEncode_QuotesReservedCharacters(t *testing.T) {
	raw, err := Encode(query.Compose(filter.Default().With(filter.Term, "St. Marks, NY"), 0, 10))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	v, _ := url.ParseQuery(raw)
	want := `(address.ilike."*St. Marks, NY*",neighborhood.ilike."*St. Marks, NY*")`
	if got := v.Get("or"); got != want {
		t.Errorf("or = %q, want %q", got, want)
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg.URL = srv.URL
	c := NewClient(cfg, zap.NewNop())
	t.Cleanup(c.Close)
	return c
}

func TestSelect_SendsHeadersAndDecodes(t *testing.T) {
	var gotPath, gotRange, gotKey, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.Header.Get("Range")
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "address": "123 Rivington St", "price": 850000, "bedrooms": 2,
			 "score": 95, "status": "active", "images": ["a.jpg"], "extra": true},
			{"id": "b-2", "address": "456 Graham Ave", "price": 720000, "status": "active", "images": null}
		]`))
	}, Config{APIKey: "anon"})

	rows, err := c.Select(context.Background(), query.Compose(filter.Default(), 50, query.PageSize))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	if gotPath != "/rest/v1/sales" {
		t.Errorf("path = %q", gotPath)
	}
	if gotRange != "50-99" {
		t.Errorf("Range = %q", gotRange)
	}
	if gotKey != "anon" || gotAuth != "Bearer anon" {
		t.Errorf("apikey = %q, Authorization = %q", gotKey, gotAuth)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ID != "1" || *rows[0].Price != 850000 || rows[0].Images[0] != "a.jpg" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].ID != "b-2" || rows[1].Bedrooms != nil || rows[1].Images != nil {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestSelect_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"42703","message":"column sales.nope does not exist"}`))
	}, Config{})

	_, err := c.Select(context.Background(), query.Compose(filter.Default(), 0, query.PageSize))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpHTTP {
		t.Fatalf("error = %v, want db.Error with op %s", err, db.OpHTTP)
	}
}

func TestSelect_RangeNotSatisfiableIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	}, Config{})

	rows, err := c.Select(context.Background(), query.Compose(filter.Default(), 500, query.PageSize))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestSelect_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}, Config{})

	_, err := c.Select(context.Background(), query.Compose(filter.Default(), 0, query.PageSize))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpDecode {
		t.Fatalf("error = %v, want decode error", err)
	}
}

func TestSelect_Retries(t *testing.T) {
	var calls atomic.Int32
	// The first request has its connection dropped without a response.
	dropFirst := func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}

	t.Run("no retry by default", func(t *testing.T) {
		calls.Store(0)
		c := newTestClient(t, dropFirst, Config{})
		if _, err := c.Select(context.Background(), query.Compose(filter.Default(), 0, 1)); err == nil {
			t.Fatal("expected error without retries")
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("calls = %d, want 1", n)
		}
	})

	t.Run("retry_max 1 recovers a dropped connection", func(t *testing.T) {
		calls.Store(0)
		c := newTestClient(t, dropFirst, Config{RetryMax: 1, RetryWait: time.Millisecond})
		rows, err := c.Select(context.Background(), query.Compose(filter.Default(), 0, 1))
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if len(rows) != 0 || calls.Load() != 2 {
			t.Errorf("rows = %d, calls = %d", len(rows), calls.Load())
		}
	})

	for _, status := range []int{http.StatusServiceUnavailable, http.StatusTooManyRequests} {
		t.Run(fmt.Sprintf("status %d is not retried", status), func(t *testing.T) {
			calls.Store(0)
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(status)
			}, Config{RetryMax: 3, RetryWait: time.Millisecond})

			_, err := c.Select(context.Background(), query.Compose(filter.Default(), 0, 1))
			var dbErr *db.Error
			if !errors.As(err, &dbErr) || dbErr.Op != db.OpHTTP {
				t.Fatalf("error = %v, want db.Error with op %s", err, db.OpHTTP)
			}
			if n := calls.Load(); n != 1 {
				t.Errorf("calls = %d, want 1", n)
			}
		})
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, Config{})

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestSelect_RateLimitHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, Config{MaxRPS: 0.001})

	q := query.Compose(filter.Default(), 0, 1)
	if _, err := c.Select(context.Background(), q); err != nil {
		t.Fatalf("first Select() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Select(ctx, q); err == nil {
		t.Fatal("expected rate limit error")
	}
}
