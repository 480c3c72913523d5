package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Surfaces group routes by what they serve.
const (
	SurfacePage     = "page"
	SurfaceFragment = "fragment"
	SurfaceAPI      = "api"
	SurfaceAsset    = "asset"
	SurfaceOps      = "ops"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dealscout",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds by route and surface",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"surface", "method", "route"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, surface and status",
		},
		[]string{"surface", "method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
}

// Middleware records request duration and count. It reads the chi route
// pattern after the handler ran, so it must sit on the root router.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			route = normalizeRoute(route)
			surface := Surface(r, route)

			httpRequestDuration.WithLabelValues(surface, r.Method, route).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(surface, r.Method, route, strconv.Itoa(status)).Inc()
		})
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Surface classifies a request. Script-driven requests to HTML routes count as
// fragments so polling does not skew page latency.
func Surface(r *http.Request, route string) string {
	switch {
	case strings.HasPrefix(route, "/api/"):
		return SurfaceAPI
	case strings.HasPrefix(route, "/static/"):
		return SurfaceAsset
	case route == "/health" || route == "/metrics":
		return SurfaceOps
	case r.Header.Get("X-Requested-With") == "fetch",
		r.URL.Query().Get("fragment") != "",
		route == "/search/results":
		return SurfaceFragment
	default:
		return SurfacePage
	}
}

// normalizeRoute keeps label cardinality bounded: unmatched paths collapse to
// "unknown" and static assets to a single label.
func normalizeRoute(route string) string {
	switch {
	case route == "":
		return "unknown"
	case strings.HasPrefix(route, "/static/"):
		return "/static/*"
	default:
		return route
	}
}
