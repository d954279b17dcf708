package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/errs"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Type string

const (
	TypeInvoiceSent    Type = "INVOICE_SENT"
	TypeInvoicePaid    Type = "INVOICE_PAID"
	TypeProjectCreated Type = "PROJECT_CREATED"
	TypeStatusChange   Type = "STATUS_CHANGE"
)

// Notification is written once per fan-out call. Only Read changes later.
type Notification struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID  `gorm:"not null;index:idx_notifications_recipient" json:"tenant_id"`
	UserID    snowflake.ID  `gorm:"not null;index:idx_notifications_recipient" json:"user_id"`
	Type      Type          `gorm:"type:varchar(64);not null" json:"type"`
	Message   string        `gorm:"type:text;not null" json:"message"`
	ProjectID *snowflake.ID `gorm:"index" json:"project_id,omitempty"`
	Read      bool          `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

type DispatchRequest struct {
	TenantID  snowflake.ID
	UserID    snowflake.ID
	Type      Type
	Message   string
	ProjectID *snowflake.ID
}

type ListRequest struct {
	pagination.Pagination
	TenantID   snowflake.ID
	UserID     snowflake.ID
	UnreadOnly bool
}

type ListResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}

type ListFilter struct {
	TenantID   snowflake.ID
	UserID     snowflake.ID
	UnreadOnly bool
	Cursor     *Cursor
	Limit      int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	MarkRead(ctx context.Context, db *gorm.DB, tenantID, userID, id snowflake.ID) (int64, error)
	MarkAllRead(ctx context.Context, db *gorm.DB, tenantID, userID snowflake.ID) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Notification, error)
	CountUnread(ctx context.Context, db *gorm.DB, tenantID, userID snowflake.ID) (int64, error)
}

type Service interface {
	Dispatch(ctx context.Context, req DispatchRequest) (*Notification, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID snowflake.ID) error
	MarkAllRead(ctx context.Context, tenantID, userID snowflake.ID) (int64, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	UnreadCount(ctx context.Context, tenantID, userID snowflake.ID) (int64, error)
}

var (
	// ErrPersistFailed wraps a failed insert. The notification does not exist.
	ErrPersistFailed = errors.New("notification_persist_failed")
	// ErrPublishFailed is only returned under the legacy fan-out policy. The
	// notification row was committed.
	ErrPublishFailed = errors.New("notification_publish_failed")

	ErrInvalidRecipient = errs.NewValidation("user_id", "invalid_recipient", "recipient is required")
	ErrInvalidType      = errs.NewValidation("type", "invalid_notification_type", "notification type is required")
	ErrInvalidPageToken = errs.NewValidation("page_token", "invalid_page_token", "page token is malformed")
)
