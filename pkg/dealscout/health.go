package dealscout

import "context"

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // "database" and, with a cache, "cache": "ok" or "error"
}

// Healthy reports whether the listing store is reachable.
func (h HealthStatus) Healthy() bool { return h.Status != "error" }

// Health checks the listing store and the page cache.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}
