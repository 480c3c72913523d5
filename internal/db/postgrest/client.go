// Package postgrest queries a hosted PostgREST endpoint (Supabase style) for listings.
package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

// Compile-time check: Client implements db.Store.
var _ db.Store = (*Client)(nil)

const (
	restPath        = "/rest/v1/"
	maxResponseSize = 8 << 20
)

var errPayloadTooLarge = errors.New("payload too large")

// Config holds the endpoint, credentials and client policy.
type Config struct {
	URL       string        // project base URL, e.g. https://xyz.supabase.co
	APIKey    string        // anon key, sent as apikey and bearer token
	RetryMax  int           // 0 disables retries
	RetryWait time.Duration // minimum backoff between retries
	MaxRPS    float64       // outbound request rate; 0 means unlimited
	Timeout   time.Duration
}

// Client implements db.Store over HTTP.
type Client struct {
	base    string
	apiKey  string
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

// NewClient builds a client. The logger receives retry diagnostics at debug level.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 100 * time.Millisecond
	if cfg.RetryWait > 0 {
		rc.RetryWaitMin = cfg.RetryWait
	}
	rc.RetryWaitMax = 10 * rc.RetryWaitMin
	rc.HTTPClient.Timeout = 10 * time.Second
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	rc.CheckRetry = retryTransportErrors
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{l: logger.Named("postgrest")}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.MaxRPS > 0 {
		burst := int(cfg.MaxRPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), burst)
	}

	return &Client{
		base:    strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    rc,
		limiter: limiter,
	}
}

// retryTransportErrors retries only when no response arrived. Any HTTP
// status, 5xx and 429 included, is handed back to the caller as is.
func retryTransportErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Ping requests the REST root, which lists the exposed tables.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, c.base+restPath, nil)
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.HTTPClient.CloseIdleConnections()
}

// WaitForReady polls Ping until the endpoint responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitForReady(ctx, c, timeout)
}

// Select runs q as a GET on the table endpoint with a Range header.
func (c *Client) Select(ctx context.Context, q *query.Query) ([]db.ListingRow, error) {
	params, err := Encode(q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	headers := http.Header{}
	headers.Set("Range-Unit", "items")
	headers.Set("Range", RangeHeader(q.Window))

	resp, err := c.do(ctx, c.base+restPath+q.Table+"?"+params, headers)
	if err != nil {
		return nil, &db.Error{Op: db.OpHTTP, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readAllLimit(resp.Body, maxResponseSize)
	if err != nil {
		return nil, &db.Error{Op: db.OpHTTP, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// Offset past the end of the result set.
		return []db.ListingRow{}, nil
	case resp.StatusCode >= 300:
		return nil, &db.Error{Op: db.OpHTTP, Err: statusError(resp.StatusCode, body)}
	}

	var rows []db.ListingRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &db.Error{Op: db.OpDecode, Err: err}
	}
	if rows == nil {
		rows = []db.ListingRow{}
	}
	return rows, nil
}

func (c *Client) do(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// PassthroughErrorHandler hands back the last response unclosed.
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// statusError extracts the PostgREST error message when the body carries one.
func statusError(code int, body []byte) error {
	var pe struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &pe) == nil && pe.Message != "" {
		return fmt.Errorf("status %d: %s %s", code, pe.Code, pe.Message)
	}
	return fmt.Errorf("status %d", code)
}

func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errPayloadTooLarge
	}
	return b, nil
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l *zap.Logger
}

func (z leveledLogger) Error(msg string, kv ...any) { z.l.Sugar().Errorw(msg, kv...) }
func (z leveledLogger) Info(msg string, kv ...any)  { z.l.Sugar().Debugw(msg, kv...) }
func (z leveledLogger) Debug(msg string, kv ...any) { z.l.Sugar().Debugw(msg, kv...) }
func (z leveledLogger) Warn(msg string, kv ...any)  { z.l.Sugar().Warnw(msg, kv...) }
