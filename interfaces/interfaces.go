// Package interfaces defines the contracts the server, health checker and
// scheduler depend on, so each can be tested against a stub.
package interfaces

import (
	dto "github.com/prometheus/client_model/go"
)

// MetricsSource is the read side of the shared request metrics.
// *metrics.Shared implements it.
type MetricsSource interface {
	// Snapshot returns the active namespace and its gathered families,
	// taken from the same bundle.
	Snapshot() (namespace string, families []*dto.MetricFamily, err error)
}

// HealthChecker reports the service health for the /health endpoint.
type HealthChecker interface {
	HealthCheck() (status string, data map[string]any, httpStatus int)
}

// Scheduler runs background jobs for the lifetime of the server.
type Scheduler interface {
	Start() error
	Stop()
}
