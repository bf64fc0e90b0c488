package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// int64Param parses a positive id path parameter, writing a 400 when it is
// malformed.
func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// traceID prefers the caller's trace header over the active span.
func traceID(c *gin.Context, header string) *string {
	id := ""
	if header != "" {
		id = c.GetHeader(header)
	}
	if id == "" {
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.IsValid() {
			id = spanCtx.TraceID().String()
		}
	}
	if id == "" {
		return nil
	}
	return &id
}
