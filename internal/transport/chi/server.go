// Package chi serves the dealscout site, the per-session search pages and the JSON listing API.
package chi

import (
	"errors"
	"net/http"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/domain"
	"github.com/dealscout/dealscout/internal/metrics"
	"github.com/dealscout/dealscout/internal/usecase/browse"
	healthuc "github.com/dealscout/dealscout/internal/usecase/health"
	searchuc "github.com/dealscout/dealscout/internal/usecase/search"
	"github.com/dealscout/dealscout/internal/version"
)

// errorCode is the machine-readable code of a JSON error body.
type errorCode string

const (
	codeBadRequest   errorCode = "bad_request"
	codeNotFound     errorCode = "listing_not_found"
	codeInvalidMode  errorCode = "invalid_mode"
	codeRemoteQuery  errorCode = "remote_query_failed"
	codeUnauthorized errorCode = "unauthorized"
	codeInternal     errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, r *http.Request, err error, msg string) bool

// Options configure the site.
type Options struct {
	// LoginURL is the external sign-in page the login view links to.
	LoginURL string
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	// SessionTTL sets the session cookie lifetime.
	SessionTTL time.Duration
}

// Server serves the site and the JSON API.
type Server struct {
	search        *searchuc.Service
	sessions      *browse.Registry
	health        *healthuc.Service
	pages         *pageSet
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP server handlers. It fails when the embedded templates do not parse.
func NewServer(
	search *searchuc.Service,
	sessions *browse.Registry,
	health *healthuc.Service,
	opts Options,
	logger *zap.Logger,
) (*Server, error) {
	pages, err := loadPages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		search:   search,
		sessions: sessions,
		health:   health,
		pages:    pages,
		opts:     opts,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidMode, http.StatusBadRequest, codeInvalidMode),
		sentinelHandler(domain.ErrInvalidOffset, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrRemoteQuery, http.StatusBadGateway, codeRemoteQuery),
	}
	return s, nil
}

// Register mounts every route on r. api wraps only the JSON API group.
func (s *Server) Register(r gochi.Router, api ...func(http.Handler) http.Handler) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Handle("/static/*", staticHandler())

	r.Get("/", s.page("home", "Find the best deal in the city"))
	r.Get("/manifesto", s.page("manifesto", "Manifesto"))
	r.Get("/pricing", s.page("pricing", "Pricing"))
	r.Get("/neighborhoods", s.page("neighborhoods", "Neighborhoods"))
	r.Get("/login", s.Login)
	r.Get("/join", s.Login)

	r.Route("/search", func(r gochi.Router) {
		r.Get("/", s.SearchPage)
		r.Get("/results", s.SearchResults)
		r.Post("/filters", s.UpdateFilters)
		r.Post("/mode", s.UpdateMode)
		r.Post("/more", s.LoadMore)
		r.Get("/listings/{id}", s.ShowListing)
		r.Post("/close", s.CloseListing)
	})

	r.Route("/api/v1", func(r gochi.Router) {
		r.Use(api...)
		r.Get("/listings", s.ListListings)
		r.Get("/listings/{mode}/{id}", s.GetListing)
	})

	r.NotFound(s.NotFound)
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.String(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code errorCode, message string) {
	writeJSON(w, r, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidMode,
		domain.ErrInvalidOffset,
		domain.ErrRemoteQuery,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, r, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, r, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
}

// statusFor maps a domain error to the HTTP status the HTML pages use.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidMode), errors.Is(err, domain.ErrInvalidOffset):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRemoteQuery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
