package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/agencyflow/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware starts one server span per request, named after the matched
// route. Tenant and actor headers are copied onto the span and into the
// request context for log correlation.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("agencyflow/http")
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := strings.ToUpper(c.Request.Method)

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		attrs := make([]attribute.KeyValue, 0, 3)
		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			attrs = append(attrs, attribute.String("request_id", requestID))
		}
		if tenant := strings.TrimSpace(c.GetHeader("X-Tenant-ID")); tenant != "" {
			ctx = obscontext.WithTenantID(ctx, tenant)
			attrs = append(attrs, attribute.String("tenant_id", tenant))
		}
		if actor := strings.TrimSpace(c.GetHeader("X-User-ID")); actor != "" {
			ctx = obscontext.WithActorID(ctx, actor)
			attrs = append(attrs, attribute.String("actor_id", actor))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if lastErr := c.Errors.Last(); lastErr != nil && status >= http.StatusInternalServerError {
			if safeErr := SafeError(lastErr.Err); safeErr != nil {
				span.RecordError(safeErr)
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
