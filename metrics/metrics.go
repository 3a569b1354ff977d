// Package metrics provides Prometheus request metrics for HTTP servers.
// It exports two metric families per namespace:
//   - <namespace>_http_requests_total: Counter with endpoint, method, and status labels
//   - <namespace>_http_requests_duration_seconds: Histogram with the same labels
//
// Each Metrics bundle owns its own registry instead of the Prometheus default
// registry, so several namespaces can live in one process. The endpoint label
// is always the matched route template, never the concrete request path.
package metrics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	requestsTotalName   = "http_requests_total"
	requestsTotalHelp   = "Total number of HTTP requests"
	requestDurationName = "http_requests_duration_seconds"
	requestDurationHelp = "HTTP request duration in seconds for all requests"
)

// LabelNames is the label schema shared by both vectors, in order.
var LabelNames = []string{"endpoint", "method", "status"}

var namespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ConstructionError reports a metric the registry refused at startup.
type ConstructionError struct {
	Metric string
	Err    error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("metrics: cannot construct %s: %v", e.Metric, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Option customizes a bundle at construction.
type Option func(*options)

type options struct {
	buckets []float64
}

// WithBuckets overrides the default histogram buckets (prometheus.DefBuckets).
func WithBuckets(buckets []float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = append([]float64(nil), buckets...)
		}
	}
}

// Metrics holds the request counter, the duration histogram and the registry
// both are registered in.
type Metrics struct {
	namespace       string
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	registry        *prometheus.Registry
}

// New builds both vectors under namespace and registers them in a fresh registry.
func New(namespace string, opts ...Option) (*Metrics, error) {
	o := options{buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	if !namespacePattern.MatchString(namespace) {
		return nil, &ConstructionError{
			Metric: namespace + "_" + requestsTotalName,
			Err:    fmt.Errorf("invalid namespace %q", namespace),
		}
	}

	if err := validateBuckets(o.buckets); err != nil {
		return nil, &ConstructionError{Metric: namespace + "_" + requestDurationName, Err: err}
	}

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      requestsTotalName,
			Help:      requestsTotalHelp,
		},
		LabelNames,
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      requestDurationName,
			Help:      requestDurationHelp,
			Buckets:   o.buckets,
		},
		LabelNames,
	)

	registry := prometheus.NewRegistry()
	if err := registry.Register(requestsTotal); err != nil {
		return nil, &ConstructionError{Metric: namespace + "_" + requestsTotalName, Err: err}
	}
	if err := registry.Register(requestDuration); err != nil {
		return nil, &ConstructionError{Metric: namespace + "_" + requestDurationName, Err: err}
	}

	return &Metrics{
		namespace:       namespace,
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
		registry:        registry,
	}, nil
}

// validateBuckets rejects bounds the histogram would panic on later.
func validateBuckets(buckets []float64) error {
	for i, b := range buckets {
		if math.IsNaN(b) {
			return errors.New("histogram bucket is NaN")
		}
		if i > 0 && b <= buckets[i-1] {
			return fmt.Errorf("histogram buckets must be strictly increasing, got %v after %v", b, buckets[i-1])
		}
	}
	return nil
}

// Namespace returns the prefix every metric name carries.
func (m *Metrics) Namespace() string {
	return m.namespace
}

// Registry returns the registry for reading only.
func (m *Metrics) Registry() prometheus.Gatherer {
	return m.registry
}

// RequestsTotal returns the request counter vector.
func (m *Metrics) RequestsTotal() *prometheus.CounterVec {
	return m.requestsTotal
}

// RequestDuration returns the request duration histogram vector.
func (m *Metrics) RequestDuration() *prometheus.HistogramVec {
	return m.requestDuration
}

// Clone returns a bundle that shares the same vectors and registry.
func (m *Metrics) Clone() *Metrics {
	return &Metrics{
		namespace:       m.namespace,
		requestsTotal:   m.requestsTotal,
		requestDuration: m.requestDuration,
		registry:        m.registry,
	}
}

type family struct {
	name   string
	help   string
	kind   string
	family *dto.MetricFamily
}

// WriteText encodes the registry in the Prometheus text format. Families
// without any child series still get their HELP and TYPE lines.
func (m *Metrics) WriteText(w io.Writer) error {
	gathered, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	families := []family{
		{name: m.namespace + "_" + requestsTotalName, help: requestsTotalHelp, kind: "counter"},
		{name: m.namespace + "_" + requestDurationName, help: requestDurationHelp, kind: "histogram"},
	}
	for _, mf := range gathered {
		matched := false
		for i := range families {
			if families[i].name == mf.GetName() {
				families[i].family = mf
				matched = true
			}
		}
		if !matched {
			families = append(families, family{name: mf.GetName(), family: mf})
		}
	}
	sort.Slice(families, func(i, j int) bool { return families[i].name < families[j].name })

	for _, f := range families {
		if f.family != nil && len(f.family.GetMetric()) > 0 {
			if _, err := expfmt.MetricFamilyToText(w, f.family); err != nil {
				return fmt.Errorf("failed to encode %s: %w", f.name, err)
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind); err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
	}

	return nil
}
