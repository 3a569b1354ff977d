// Package health reports whether the service and its request metrics are usable.
package health

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/routemetrics/interfaces"
	"github.com/giygas/routemetrics/logging"
	"github.com/giygas/routemetrics/metrics"
)

// Compile-time check to ensure Checker implements HealthChecker
var _ interfaces.HealthChecker = (*Checker)(nil)

// Checker implements interfaces.HealthChecker
type Checker struct {
	source    interfaces.MetricsSource
	startedAt time.Time
}

// NewChecker creates a health checker reading from source
func NewChecker(source interfaces.MetricsSource, startedAt time.Time) *Checker {
	return &Checker{source: source, startedAt: startedAt}
}

// HealthCheck is healthy while the metrics registry can be gathered
func (c *Checker) HealthCheck() (status string, data map[string]any, httpStatus int) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	namespace, families, err := c.source.Snapshot()
	data = map[string]any{
		"uptime":          formatUptimeHuman(time.Since(c.startedAt)),
		"memory_usage_mb": int(m.Alloc / 1024 / 1024),
		"namespace":       namespace,
	}

	if err != nil {
		logging.Warn("Health check could not gather metrics", "error", err)
		data["error"] = err.Error()
		return "degraded", data, http.StatusServiceUnavailable
	}

	summary := metrics.Summarize(families, namespace)
	data["requests_recorded"] = summary.Requests
	data["series"] = len(summary.Series)

	return "healthy", data, http.StatusOK
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
