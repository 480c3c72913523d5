package dealscout

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver string // "postgrest", "postgres" or "sqlite"

	url      string
	apiKey   string
	retryMax int
	maxRPS   float64

	dsn string

	path string
	seed bool

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	debounce         time.Duration
	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithPostgREST reads listings from a PostgREST endpoint such as a Supabase project.
func WithPostgREST(url, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgrest"
		c.url = url
		c.apiKey = apiKey
	})
}

// WithPostgres reads listings straight from PostgreSQL.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.dsn = dsn
	})
}

// WithSQLite reads listings from a SQLite file (":memory:" for a throwaway
// database). seed fills an empty database with demo listings.
func WithSQLite(path string, seed bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "sqlite"
		c.path = path
		c.seed = seed
	})
}

// WithRetries retries failed PostgREST requests up to n times. Default: 0.
func WithRetries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.retryMax = n
	})
}

// WithRateLimit caps outbound PostgREST requests per second. Default: unlimited.
func WithRateLimit(rps float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRPS = rps
	})
}

// WithCache serves repeated queries from Redis for ttl.
func WithCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithDebounce sets the quiet period of session field edits. Default: 500ms.
func WithDebounce(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.debounce = d
	})
}

// WithReadinessTimeout bounds the connectivity check in New. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
