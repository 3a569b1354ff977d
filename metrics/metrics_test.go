package metrics

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func mustNew(t *testing.T, namespace string, opts ...Option) *Metrics {
	t.Helper()
	m, err := New(namespace, opts...)
	if err != nil {
		t.Fatalf("Expected no error creating metrics, got %v", err)
	}
	return m
}

func writeText(t *testing.T, m *Metrics) string {
	t.Helper()
	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		t.Fatalf("Expected no error encoding metrics, got %v", err)
	}
	return buf.String()
}

func TestNewRegistersBothFamilies(t *testing.T) {
	m := mustNew(t, "svc")

	out := writeText(t, m)

	expected := []string{
		"# HELP svc_http_requests_total Total number of HTTP requests",
		"# TYPE svc_http_requests_total counter",
		"# HELP svc_http_requests_duration_seconds HTTP request duration in seconds for all requests",
		"# TYPE svc_http_requests_duration_seconds histogram",
	}
	for _, line := range expected {
		if !strings.Contains(out, line) {
			t.Errorf("Expected output to contain %q, got:\n%s", line, out)
		}
	}

	for _, line := range strings.Split(out, "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			t.Errorf("Expected no child series before any request, got line %q", line)
		}
	}

	if m.Namespace() != "svc" {
		t.Errorf("Expected namespace svc, got %s", m.Namespace())
	}
}

func TestNewRejectsInvalidNamespace(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
	}{
		{"empty", ""},
		{"leading digit", "1svc"},
		{"dash", "my-svc"},
		{"space", "my svc"},
		{"colon", "svc:api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.namespace)
			if err == nil {
				t.Fatalf("Expected error for namespace %q, got bundle %v", tt.namespace, m)
			}

			var constructionErr *ConstructionError
			if !errors.As(err, &constructionErr) {
				t.Fatalf("Expected *ConstructionError, got %T", err)
			}
			if !strings.Contains(constructionErr.Metric, "http_requests_total") {
				t.Errorf("Expected error to name the counter, got %s", constructionErr.Metric)
			}
		})
	}
}

func TestNewRejectsInvalidBuckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets []float64
	}{
		{"decreasing", []float64{0.5, 0.1}},
		{"duplicate", []float64{0.1, 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("svc", WithBuckets(tt.buckets))

			var constructionErr *ConstructionError
			if !errors.As(err, &constructionErr) {
				t.Fatalf("Expected *ConstructionError, got %v", err)
			}
			if !strings.Contains(constructionErr.Metric, "http_requests_duration_seconds") {
				t.Errorf("Expected error to name the histogram, got %s", constructionErr.Metric)
			}
			if errors.Unwrap(err) == nil {
				t.Error("Expected the cause to be unwrappable")
			}
		})
	}
}

func TestWithBucketsOverridesDefaults(t *testing.T) {
	m := mustNew(t, "svc", WithBuckets([]float64{0.1, 0.5}))
	m.RequestDuration().WithLabelValues("/a", "GET", "200").Observe(0.3)

	out := writeText(t, m)

	if !strings.Contains(out, `le="0.5"`) {
		t.Errorf("Expected custom bucket 0.5, got:\n%s", out)
	}
	if strings.Contains(out, `le="0.005"`) {
		t.Errorf("Expected default buckets to be replaced, got:\n%s", out)
	}
}

func TestBundlesWithSameNamespaceDoNotConflict(t *testing.T) {
	first := mustNew(t, "svc")
	second := mustNew(t, "svc")

	first.RequestsTotal().WithLabelValues("/a", "GET", "200").Inc()

	if got := testutil.CollectAndCount(second.RequestsTotal()); got != 0 {
		t.Errorf("Expected second bundle to have no series, got %d", got)
	}
}

func TestCloneSharesVectors(t *testing.T) {
	m := mustNew(t, "svc")
	clone := m.Clone()

	clone.RequestsTotal().WithLabelValues("/a", "GET", "200").Inc()

	if got := testutil.ToFloat64(m.RequestsTotal().WithLabelValues("/a", "GET", "200")); got != 1 {
		t.Errorf("Expected original to see the clone's increment, got %v", got)
	}
	if clone.Registry() != m.Registry() {
		t.Error("Expected clone to share the registry")
	}
	if writeText(t, clone) != writeText(t, m) {
		t.Error("Expected clone and original to encode identically")
	}
}

func TestWriteTextIsIdempotent(t *testing.T) {
	m := mustNew(t, "svc")
	m.RequestsTotal().WithLabelValues("/a", "GET", "200").Add(3)
	m.RequestsTotal().WithLabelValues("/b", "POST", "500").Inc()
	m.RequestDuration().WithLabelValues("/a", "GET", "200").Observe(0.02)

	first := writeText(t, m)
	second := writeText(t, m)

	if first != second {
		t.Errorf("Expected identical encodings, got:\n%s\nand:\n%s", first, second)
	}
}

func TestWriteTextOrdersFamiliesByName(t *testing.T) {
	m := mustNew(t, "svc")
	m.RequestsTotal().WithLabelValues("/a", "GET", "200").Inc()

	out := writeText(t, m)

	histogram := strings.Index(out, "# TYPE svc_http_requests_duration_seconds")
	counter := strings.Index(out, "# TYPE svc_http_requests_total")
	if histogram < 0 || counter < 0 || histogram > counter {
		t.Errorf("Expected histogram family before counter family, got:\n%s", out)
	}
	if !strings.Contains(out, `svc_http_requests_total{endpoint="/a",method="GET",status="200"} 1`) {
		t.Errorf("Expected counter series, got:\n%s", out)
	}
}
