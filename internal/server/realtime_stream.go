package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/agencyflow/internal/errs"
	"github.com/smallbiznis/agencyflow/internal/realtime"
)

const streamHeartbeat = 15 * time.Second

// StreamRealtime serves one realtime channel as server-sent events. Callers
// may only follow their own tenant channel or a project of their tenant;
// without ?channel the tenant channel is used.
func (s *Server) StreamRealtime(c *gin.Context) {
	if s.hub == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	channel, err := s.authorizeChannel(c, c.Query("channel"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	subscription, backlog, err := s.hub.Subscribe(channel)
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	for _, event := range backlog {
		if err := writeRealtimeEvent(writer, event); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-subscription.Events():
			if !ok {
				return
			}
			if err := writeRealtimeEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) authorizeChannel(c *gin.Context, requested string) (string, error) {
	tenant := tenantID(c)
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return realtime.TenantChannel(tenant.String()), nil
	}

	kind, id, ok := realtime.ParseChannel(requested)
	if !ok {
		return "", errs.NewValidation("channel", "invalid_channel", "unknown channel")
	}
	switch kind {
	case "tenant":
		if id != tenant.String() {
			return "", errs.Wrap(errs.ErrNotFound, "channel_not_found")
		}
		return realtime.TenantChannel(id), nil
	default:
		projectID, err := snowflake.ParseString(id)
		if err != nil || projectID == 0 {
			return "", errs.NewValidation("channel", "invalid_channel", "unknown channel")
		}
		if _, err := s.projectSvc.GetByID(c.Request.Context(), tenant, projectID); err != nil {
			return "", err
		}
		return realtime.ProjectChannel(projectID.String()), nil
	}
}

func writeRealtimeEvent(w io.Writer, event realtime.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
	return err
}
