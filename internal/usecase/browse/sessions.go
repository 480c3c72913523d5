package browse

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Factory builds a fresh controller for a new session.
type Factory func() *Controller

// Registry keeps one controller per browser session in an expirable LRU.
// Idle sessions expire after ttl; the least recently used is evicted once
// maxSessions is reached. Evicted controllers are closed.
type Registry struct {
	cache   *expirable.LRU[string, *Controller]
	factory Factory
	gauge   prometheus.Gauge
	logger  *zap.Logger
}

// NewRegistry creates a session registry. gauge may be nil.
func NewRegistry(maxSessions int, ttl time.Duration, factory Factory, gauge prometheus.Gauge, logger *zap.Logger) *Registry {
	r := &Registry{factory: factory, gauge: gauge, logger: logger}
	r.cache = expirable.NewLRU[string, *Controller](maxSessions, r.onEvict, ttl)
	return r
}

// Get returns the controller for id and refreshes its idle timer.
func (r *Registry) Get(id string) (*Controller, bool) {
	if id == "" {
		return nil, false
	}
	c, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	r.cache.Add(id, c)
	return c, true
}

// Create registers a new session and returns its id.
func (r *Registry) Create() (string, *Controller) {
	id := uuid.NewString()
	c := r.factory()
	r.cache.Add(id, c)
	if r.gauge != nil {
		r.gauge.Inc()
	}
	r.logger.Debug("Search session created", zap.String("session_id", id))
	return id, c
}

// GetOrCreate returns the session for id, creating one when id is unknown or
// expired. created reports whether the returned id is new.
func (r *Registry) GetOrCreate(id string) (string, *Controller, bool) {
	if c, ok := r.Get(id); ok {
		return id, c, false
	}
	newID, c := r.Create()
	return newID, c, true
}

// Remove ends a session.
func (r *Registry) Remove(id string) {
	r.cache.Remove(id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close ends every session.
func (r *Registry) Close() {
	r.cache.Purge()
}

// onEvict runs under the cache lock, so closing happens off it.
func (r *Registry) onEvict(id string, c *Controller) {
	if r.gauge != nil {
		r.gauge.Dec()
	}
	r.logger.Debug("Search session ended", zap.String("session_id", id))
	go c.Close()
}
