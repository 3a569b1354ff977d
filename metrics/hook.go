package metrics

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Kind is the set of request lifecycle phases a Hook takes part in.
type Kind uint8

const (
	KindRequest Kind = 1 << iota
	KindResponse
)

// Info describes a Hook to the host server.
type Info struct {
	Name string
	Kind Kind
}

// Hook is the two-phase contract a host server drives for every request.
// OnRequest runs before routing dispatches to a handler and may return a
// derived request; OnResponse runs once the handler has produced its final
// status.
type Hook interface {
	Info() Info
	OnRequest(r *http.Request) *http.Request
	OnResponse(r *http.Request, status int)
}

// RouteFunc resolves the matched route template of r. ok is false when no
// route matched.
type RouteFunc func(r *http.Request) (pattern string, ok bool)

// ChiRoute reads the pattern chi matched for r. It only sees the match when
// the hook runs inside the router, i.e. installed with Router.Use.
//
// A miss inside a mounted subrouter leaves the mount's "/*" pattern behind,
// so wildcard patterns are matched again against the whole routing tree.
func ChiRoute(r *http.Request) (string, bool) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "", false
	}
	pattern := rctx.RoutePattern()
	if pattern == "" {
		return "", false
	}
	if strings.HasSuffix(pattern, "*") && !resolves(rctx.Routes, r) {
		return "", false
	}
	return pattern, true
}

// resolves reports whether routes has a handler for r, descending into
// mounted subrouters.
func resolves(routes chi.Routes, r *http.Request) bool {
	if routes == nil {
		return false
	}
	path := r.URL.RawPath
	if path == "" {
		path = r.URL.Path
	}
	return routes.Match(chi.NewRouteContext(), r.Method, path)
}

// Attach adapts h to net/http middleware, calling only the phases h
// declares in its Info.
func Attach(h Hook) func(http.Handler) http.Handler {
	info := h.Info()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if info.Kind&KindRequest != 0 {
				r = h.OnRequest(r)
			}
			if info.Kind&KindResponse == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// net/http answers 200 for handlers that never write
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			h.OnResponse(r, status)
		})
	}
}
