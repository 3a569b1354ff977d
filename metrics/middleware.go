package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/giygas/routemetrics/logging"
)

// Compile-time check to ensure Middleware implements Hook
var _ Hook = (*Middleware)(nil)

// statusLabels holds the label value of every valid status code so the
// response path does not format integers per request.
var statusLabels [600]string

func init() {
	for code := range statusLabels {
		statusLabels[code] = strconv.Itoa(code)
	}
}

func statusLabel(code int) string {
	if code >= 0 && code < len(statusLabels) {
		return statusLabels[code]
	}
	return strconv.Itoa(code)
}

// Labels is the (endpoint, method, status) tuple selecting a child series.
type Labels struct {
	Endpoint string
	Method   string
	Status   string
}

// Middleware records one counter increment and one duration observation for
// every request that matched a route.
type Middleware struct {
	shared *Shared
	route  RouteFunc
	now    func() time.Time
}

// MiddlewareOption customizes a Middleware.
type MiddlewareOption func(*Middleware)

// WithRouteFunc replaces ChiRoute as the route resolver.
func WithRouteFunc(fn RouteFunc) MiddlewareOption {
	return func(m *Middleware) {
		if fn != nil {
			m.route = fn
		}
	}
}

// NewMiddleware creates a Middleware recording into shared.
func NewMiddleware(shared *Shared, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		shared: shared,
		route:  ChiRoute,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Info declares both lifecycle phases.
func (m *Middleware) Info() Info {
	return Info{
		Name: "Prometheus metric collection",
		Kind: KindRequest | KindResponse,
	}
}

// OnRequest stamps r with its start time. The body is left untouched.
func (m *Middleware) OnRequest(r *http.Request) *http.Request {
	return r.WithContext(WithTimerStart(r.Context(), StartTimer(m.now())))
}

// OnResponse records r if it matched a route.
func (m *Middleware) OnResponse(r *http.Request, status int) {
	endpoint, ok := m.route(r)
	if !ok {
		return
	}
	m.Record(r, endpoint, status)
}

// Record updates both vectors for a request whose route template the host
// resolved itself. An empty endpoint means no route matched and records
// nothing. The counter is incremented even when r carries no TimerStart;
// only the observation is skipped then.
func (m *Middleware) Record(r *http.Request, endpoint string, status int) {
	if endpoint == "" {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.Warn("Metrics recording panicked",
				"endpoint", endpoint,
				"method", r.Method,
				"status", status,
				"panic", fmt.Sprint(rec))
		}
	}()

	labels := Labels{Endpoint: endpoint, Method: r.Method, Status: statusLabel(status)}
	bundle := m.shared.Read()

	counter, err := bundle.requestsTotal.GetMetricWithLabelValues(labels.Endpoint, labels.Method, labels.Status)
	if err != nil {
		logging.Warn("Failed to resolve request counter", "endpoint", endpoint, "method", r.Method, "error", err)
		return
	}
	counter.Inc()

	start, ok := TimerStartFrom(r.Context())
	if !ok {
		logging.Debug("Request reached the response hook without a start time",
			"endpoint", endpoint, "method", r.Method)
		return
	}

	observer, err := bundle.requestDuration.GetMetricWithLabelValues(labels.Endpoint, labels.Method, labels.Status)
	if err != nil {
		logging.Warn("Failed to resolve request histogram", "endpoint", endpoint, "method", r.Method, "error", err)
		return
	}
	observer.Observe(start.Elapsed(m.now()))
}

// Handler instruments next. Install it with chi's Router.Use so the matched
// route is visible when the response hook runs.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return Attach(m)(next)
}
