// Package ginmetrics drives a metrics.Middleware from a gin engine. gin
// resolves the route template itself, so the endpoint label comes from
// gin.Context.FullPath, which is empty when no route matched.
package ginmetrics

import (
	"github.com/gin-gonic/gin"
	"github.com/giygas/routemetrics/metrics"
)

// Middleware records every request that gin routed.
func Middleware(mw *metrics.Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = mw.OnRequest(c.Request)

		c.Next()

		mw.Record(c.Request, c.FullPath(), c.Writer.Status())
	}
}

// Handler exposes the shared metrics on a gin route.
func Handler(shared *metrics.Shared) gin.HandlerFunc {
	return gin.WrapH(metrics.Handler(shared))
}
