package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/errs"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Type string

const (
	TypeProjectCreated Type = "PROJECT_CREATED"
	TypeStatusChange   Type = "STATUS_CHANGE"
	TypeFileUploaded   Type = "FILE_UPLOADED"
)

// Activity is an append-only project audit entry. Rows are never updated.
type Activity struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID      `gorm:"not null;index:idx_activities_tenant_project" json:"tenant_id"`
	ProjectID   snowflake.ID      `gorm:"not null;index:idx_activities_tenant_project" json:"project_id"`
	UserID      *snowflake.ID     `gorm:"index" json:"user_id,omitempty"`
	Type        Type              `gorm:"type:varchar(64);not null" json:"type"`
	Description string            `gorm:"type:text;not null" json:"description"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
}

func (Activity) TableName() string { return "activities" }

type RecordRequest struct {
	TenantID    snowflake.ID
	ProjectID   snowflake.ID
	ActorID     *snowflake.ID
	Type        Type
	Description string
	Metadata    map[string]any
}

type ListRequest struct {
	pagination.Pagination
	TenantID  snowflake.ID
	ProjectID snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	Activities []Activity `json:"activities"`
}

type ListFilter struct {
	TenantID  snowflake.ID
	ProjectID snowflake.ID
	Cursor    *Cursor
	Limit     int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Activity) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Activity, error)
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Activity, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidType      = errs.NewValidation("type", "invalid_activity_type", "activity type is required")
	ErrInvalidProject   = errs.NewValidation("project_id", "invalid_project", "project is required")
	ErrInvalidPageToken = errs.NewValidation("page_token", "invalid_page_token", "page token is malformed")
)
