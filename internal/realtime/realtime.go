// Package realtime carries fire-and-forget events to connected clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	EventNotificationCreated = "notification.created"
	EventStatusUpdated       = "status.updated"
	EventFileUploaded        = "file.uploaded"
	EventCommentAdded        = "comment.added"
)

var (
	ErrHubUnavailable = errors.New("realtime_hub_unavailable")
	ErrInvalidChannel = errors.New("realtime_invalid_channel")
)

// Publisher pushes one event to a named channel. No delivery guarantee.
type Publisher interface {
	Publish(ctx context.Context, channel string, event string, payload any) error
}

type Event struct {
	Channel     string          `json:"channel"`
	Name        string          `json:"event"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

func TenantChannel(tenantID string) string {
	return "tenant-" + strings.TrimSpace(tenantID)
}

func ProjectChannel(projectID string) string {
	return "project-" + strings.TrimSpace(projectID)
}

// ParseChannel splits "tenant-1" into ("tenant", "1").
func ParseChannel(channel string) (kind string, id string, ok bool) {
	kind, id, found := strings.Cut(strings.TrimSpace(channel), "-")
	if !found || id == "" {
		return "", "", false
	}
	switch kind {
	case "tenant", "project":
		return kind, id, true
	default:
		return "", "", false
	}
}

func newEvent(channel, name string, payload any) (Event, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return Event{}, ErrInvalidChannel
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Channel:     channel,
		Name:        name,
		Payload:     raw,
		PublishedAt: time.Now().UTC(),
	}, nil
}
