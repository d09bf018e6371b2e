package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictify/internal/logger"
)

// RequestLogger writes one entry per request through the trace-aware
// logger. Requests to quietPaths that succeed are only logged at debug
// level, so probes and scrapes do not flood the log.
func RequestLogger(quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		entry := logger.FromContext(c.Request.Context()).WithFields(map[string]interface{}{
			"status":     status,
			"method":     c.Request.Method,
			"route":      route,
			"path":       c.Request.URL.Path,
			"latency_ms": time.Since(start).Milliseconds(),
			"bytes":      c.Writer.Size(),
			"ip":         c.ClientIP(),
		})
		if id := c.Param("id"); id != "" {
			entry = entry.WithField("event_id", id)
		}
		if userID := GetUserID(c); userID != 0 {
			entry = entry.WithField("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		case quiet[c.Request.URL.Path]:
			entry.Debug("request served")
		default:
			entry.Info("request served")
		}
	}
}
