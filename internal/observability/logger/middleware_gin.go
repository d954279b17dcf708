package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/agencyflow/internal/observability/context"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-Id"

// ErrorDetail is what the request log records about a failed request.
type ErrorDetail struct {
	Type string
	Code string
	// Fields carries error-specific context such as the entity a failed
	// fan-out belongs to.
	Fields []zap.Field
}

type MiddlewareConfig struct {
	Debug         bool
	DescribeError func(err error) ErrorDetail
}

// GinMiddleware assigns a request id and writes one log line per request.
// Server errors log at error level; probes log at debug.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFor(c)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			detail := ErrorDetail{Type: "internal_error"}
			if cfg.DescribeError != nil {
				detail = cfg.DescribeError(lastErr.Err)
			}
			fields = append(fields, zap.String("error_type", detail.Type))
			if detail.Code != "" {
				fields = append(fields, zap.String("error_code", detail.Code))
			}
			fields = append(fields, detail.Fields...)
			if cfg.Debug {
				fields = append(fields, zap.Error(lastErr.Err))
			}
		}

		log := FromContext(c.Request.Context())
		switch {
		case route == "/metrics" || route == "/health":
			log.Debug("http request", fields...)
		case status >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// requestIDFor keeps a caller supplied id and echoes it back.
func requestIDFor(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
	if requestID == "" || len(requestID) > 128 {
		requestID = uuid.NewString()
	}
	c.Header(HeaderRequestID, requestID)
	return requestID
}
