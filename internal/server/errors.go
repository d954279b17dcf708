package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/agencyflow/internal/errs"
	"github.com/smallbiznis/agencyflow/internal/fanout"
	obslogger "github.com/smallbiznis/agencyflow/internal/observability/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorPayload struct {
	Type     string            `json:"type"`
	Message  string            `json:"message"`
	Errors   []ValidationError `json:"errors,omitempty"`
	EntityID string            `json:"entity_id,omitempty"`
	Channels []string          `json:"channels,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternal           = errors.New("internal_error")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return errs.NewValidation("request", "invalid_request", "invalid request")
}

func invalidIDError(field string) error {
	return errs.NewValidation(field, "invalid_id", "invalid id")
}

// mapError turns a service error into an HTTP status and body. A fan-out
// failure means the state change was committed but a fatal side channel was
// not, so it maps to 502 and names the committed entity.
func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var fanErr *fanout.Error
	if errors.As(err, &fanErr) {
		return http.StatusBadGateway, errorPayload{
			Type:     "fanout_failed",
			Message:  "state saved but delivery failed",
			EntityID: fanErr.EntityID,
			Channels: fanErr.Channels(),
		}
	}

	var vErr *errs.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: vErr.Field, Code: vErr.Code, Message: vErr.Message},
			},
		}
	}

	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{{Code: errs.Code(err), Message: "invalid value"}},
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: messageOr(errs.Code(err), "conflict"),
		}
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: messageOr(errs.Code(err), "not found"),
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func describeErrorForLog(err error) obslogger.ErrorDetail {
	_, payload := mapError(err)
	detail := obslogger.ErrorDetail{Type: payload.Type, Code: errs.Code(err)}
	if payload.EntityID != "" {
		detail.Fields = append(detail.Fields,
			zap.String("entity_id", payload.EntityID),
			zap.Strings("failed_channels", payload.Channels),
		)
	}
	return detail
}

func messageOr(code, fallback string) string {
	if code == "" {
		return fallback
	}
	return code
}
