package dealscout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/db"
	dbPostgres "github.com/dealscout/dealscout/internal/db/postgres"
	dbPostgREST "github.com/dealscout/dealscout/internal/db/postgrest"
	dbRedis "github.com/dealscout/dealscout/internal/db/redis"
	dbSQLite "github.com/dealscout/dealscout/internal/db/sqlite"
	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/result"
	listingrepo "github.com/dealscout/dealscout/internal/repository/listing"
	"github.com/dealscout/dealscout/internal/repository/pagecache"
	"github.com/dealscout/dealscout/internal/usecase/browse"
	healthuc "github.com/dealscout/dealscout/internal/usecase/health"
	searchuc "github.com/dealscout/dealscout/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultFetchTimeout     = 15 * time.Second
	defaultCacheTTL         = time.Minute
)

// Internal interfaces, swapped out in tests.
type searchUseCase interface {
	FetchPage(ctx context.Context, f filter.Filters, offset int) (result.Page, error)
	Get(ctx context.Context, m mode.Mode, id string) (listing.Listing, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the dealscout SDK entry point.
type Client struct {
	store     db.Store
	cache     db.Cache
	searchSvc searchUseCase
	healthSvc healthUseCase
	debounce  time.Duration
	obs       *observer
}

// New creates a Client and connects to the listing store.
// The provided context is used for the initial readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{readinessTimeout: defaultReadinessTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("dealscout: listing store required (use WithPostgREST, WithPostgres or WithSQLite)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("dealscout: listing store not ready: %w", err)
	}

	var cache db.Cache
	if len(cfg.cacheAddrs) > 0 {
		cache, err = createCache(ctx, cfg)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	return wireClient(store, cache, cfg, obs), nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "postgrest":
		if cfg.url == "" {
			return nil, errors.New("dealscout: postgrest url required")
		}
		return dbPostgREST.NewClient(dbPostgREST.Config{
			URL:      cfg.url,
			APIKey:   cfg.apiKey,
			RetryMax: cfg.retryMax,
			MaxRPS:   cfg.maxRPS,
		}, zap.NewNop()), nil
	case "postgres":
		s, err := dbPostgres.NewStore(ctx, dbPostgres.Config{DSN: cfg.dsn})
		if err != nil {
			return nil, fmt.Errorf("dealscout: create postgres store: %w", err)
		}
		return s, nil
	case "sqlite":
		s, err := dbSQLite.Open(ctx, dbSQLite.Config{Path: cfg.path, Seed: cfg.seed})
		if err != nil {
			return nil, fmt.Errorf("dealscout: open sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("dealscout: unknown driver %q", cfg.driver)
	}
}

func createCache(ctx context.Context, cfg *clientConfig) (db.Cache, error) {
	c, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.cacheAddrs,
		Password: cfg.cachePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("dealscout: create redis cache: %w", err)
	}
	if err := c.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		c.Close()
		return nil, fmt.Errorf("dealscout: redis cache not ready: %w", err)
	}
	return c, nil
}

// wireClient builds the services. cache may be nil.
func wireClient(store db.Store, cache db.Cache, cfg *clientConfig, obs *observer) *Client {
	nop := zap.NewNop()

	var querier db.Querier = store
	// health.New takes a nil interface for a disabled cache, never a typed nil.
	var cachePinger healthuc.Pinger
	if cache != nil {
		ttl := cfg.cacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		querier = pagecache.New(store, cache, ttl, nil, nop)
		cachePinger = cache
	}

	searchSvc := searchuc.New(listingrepo.New(querier, nop), PageSize, nop)

	return &Client{
		store:     store,
		cache:     cache,
		searchSvc: searchSvc,
		healthSvc: healthuc.New(store, cachePinger),
		debounce:  cfg.debounce,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks listing store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search returns one page of active listings matching f, best score first.
// offset is the index of the first listing, a multiple of PageSize.
func (c *Client) Search(ctx context.Context, f Filters, offset int) (_ Page, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "mode", f.Mode, "offset", offset) }()

	if offset < 0 {
		return Page{}, fmt.Errorf("search: offset %d: %w", offset, ErrInvalidOffset)
	}
	df, err := f.toDomain()
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	p, err := c.searchSvc.FetchPage(ctx, df, offset)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	c.obs.returned(Mode(df.Mode), p.Len())
	return pageFromDomain(p, PageSize), nil
}

// Get returns one active listing. Missing and inactive listings yield ErrNotFound.
func (c *Client) Get(ctx context.Context, m Mode, id string) (_ Listing, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err, "mode", m, "id", id) }()

	dm, err := mode.Parse(string(m))
	if err != nil {
		return Listing{}, fmt.Errorf("get: %w", err)
	}
	l, err := c.searchSvc.Get(ctx, dm, id)
	if err != nil {
		return Listing{}, fmt.Errorf("get %s: %w", id, err)
	}
	return listingFromDomain(l), nil
}

// NewSession starts an interactive search session in buy mode with no results.
// Call Refresh to load the first page. Close the session when done.
func (c *Client) NewSession() *Session {
	ctrl := browse.NewController(c.searchSvc, browse.Options{
		PageSize:     PageSize,
		Debounce:     c.debounce,
		FetchTimeout: defaultFetchTimeout,
	}, zap.NewNop())
	return &Session{ctrl: ctrl, obs: c.obs}
}
