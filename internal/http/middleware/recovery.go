package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"deflect.app/relay/common/metrics"
)

// Recovery turns a handler panic into a 500. The panic is logged with its
// stack, counted per route and recorded on the request span; the response
// carries the trace id so a caller can quote it.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			ctx := c.Request.Context()
			route := routeLabel(c)
			metrics.HTTPPanics.WithLabelValues(route).Inc()

			span := trace.SpanFromContext(ctx)
			span.RecordError(fmt.Errorf("panic: %v", rec))
			span.SetStatus(codes.Error, "panic")

			slog.ErrorContext(ctx, "panic recovered",
				"error", rec,
				"method", c.Request.Method,
				"route", route,
				"stack", string(debug.Stack()))

			body := gin.H{"error": "internal server error"}
			if sc := span.SpanContext(); sc.HasTraceID() {
				body["trace_id"] = sc.TraceID().String()
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
