package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/config"
	"github.com/dealscout/dealscout/internal/db"
	dbPostgres "github.com/dealscout/dealscout/internal/db/postgres"
	dbPostgREST "github.com/dealscout/dealscout/internal/db/postgrest"
	dbRedis "github.com/dealscout/dealscout/internal/db/redis"
	dbSQLite "github.com/dealscout/dealscout/internal/db/sqlite"
	logpkg "github.com/dealscout/dealscout/internal/logger"
	"github.com/dealscout/dealscout/internal/metrics"
	listingrepo "github.com/dealscout/dealscout/internal/repository/listing"
	"github.com/dealscout/dealscout/internal/repository/pagecache"
	chiTransport "github.com/dealscout/dealscout/internal/transport/chi"
	"github.com/dealscout/dealscout/internal/usecase/browse"
	healthuc "github.com/dealscout/dealscout/internal/usecase/health"
	searchuc "github.com/dealscout/dealscout/internal/usecase/search"
	"github.com/dealscout/dealscout/internal/version"
)

func main() {
	// Local secrets first, so ${VAR} expansion in the config sees them.
	if err := config.LoadDotEnv(); err != nil {
		panic("failed to load .env: " + err.Error())
	}

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting dealscout web server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	ctx := context.Background()

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to create listing store", zap.Error(err))
	}
	defer store.Close()

	// Wait for the listing store to be ready
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Listing store not ready", zap.Error(err))
	}
	logger.Info("Connected to listing store")

	// Register listing metrics explicitly (no init())
	metrics.RegisterListingMetrics()

	// Optional page cache in front of the store. Pass a nil interface, not a
	// typed nil pointer, to health when it is disabled.
	var querier db.Querier = store
	var cachePinger healthuc.Pinger
	if cfg.Cache.Enabled {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create page cache", zap.Error(err))
		}
		defer cache.Close()
		if err := cache.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Page cache not ready", zap.Error(err))
		}
		querier = pagecache.New(store, cache,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.PageCacheTotal, logger)
		cachePinger = cache
		logger.Info("Page cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Repositories and use cases
	listings := listingrepo.New(querier, logger)
	searchSvc := searchuc.New(listings, cfg.Search.PageSize, logger)
	healthSvc := healthuc.New(store, cachePinger)

	controllerOpts := browse.Options{
		PageSize:     cfg.Search.PageSize,
		Debounce:     time.Duration(cfg.Search.DebounceMs) * time.Millisecond,
		FetchTimeout: time.Duration(cfg.Search.FetchTimeoutSec) * time.Second,
	}
	sessionTTL := time.Duration(cfg.Search.SessionTTLSec) * time.Second
	sessions := browse.NewRegistry(cfg.Search.MaxSessions, sessionTTL, func() *browse.Controller {
		return browse.NewController(searchSvc, controllerOpts, logger)
	}, metrics.BrowseSessions, logger)
	defer sessions.Close()

	server, err := chiTransport.NewServer(searchSvc, sessions, healthSvc, chiTransport.Options{
		LoginURL:      cfg.Auth.ProviderURL,
		SecureCookies: cfg.HTTP.SecureCookies,
		SessionTTL:    sessionTTL,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to build HTTP server", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	if rpm := cfg.RateLimit.RequestsPerMinute; rpm > 0 {
		r.Use(httprate.LimitByIP(rpm, time.Minute))
	}
	server.Register(r,
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}),
		chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully", zap.Int("sessions", sessions.Len()))
}

// openStore creates the listing store for the configured driver.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgREST:
		return dbPostgREST.NewClient(dbPostgREST.Config{
			URL:      cfg.URL,
			APIKey:   cfg.APIKey,
			RetryMax: cfg.RetryMax,
			MaxRPS:   cfg.MaxRPS,
			Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		}, logger), nil
	case config.DriverPostgres:
		return dbPostgres.NewStore(ctx, dbPostgres.Config{
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
		})
	case config.DriverSQLite:
		return dbSQLite.Open(ctx, dbSQLite.Config{
			Path: cfg.Path,
			Seed: cfg.Seed,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line: one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
