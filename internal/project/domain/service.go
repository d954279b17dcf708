package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/errs"
	filedomain "github.com/smallbiznis/agencyflow/internal/file/domain"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateRequest struct {
	TenantID    snowflake.ID
	ClientID    snowflake.ID
	Title       string
	Description string
	Status      string
	ActorID     *snowflake.ID
}

type UpdateStatusRequest struct {
	TenantID     snowflake.ID
	ProjectID    snowflake.ID
	Status       string
	ActingUserID *snowflake.ID
}

type UploadFileRequest struct {
	TenantID    snowflake.ID
	ProjectID   snowflake.ID
	ActorID     *snowflake.ID
	Filename    string
	ContentType string
	Data        []byte
}

type ListRequest struct {
	pagination.Pagination
	TenantID snowflake.ID
	Status   string
	ClientID snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	Projects []Project `json:"projects"`
}

type ListFilter struct {
	TenantID snowflake.ID
	Status   Status
	ClientID snowflake.ID
	Cursor   *Cursor
	Limit    int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Project, error)
	// UpdateStatus moves the row from -> to and reports zero rows when the
	// stored status no longer equals from.
	UpdateStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, from, to Status, updatedAt time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Project, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Project, error)
	// UpdateStatus returns the committed project even when it also returns a
	// *fanout.Error.
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Project, error)
	Delete(ctx context.Context, tenantID, projectID snowflake.ID) error
	UploadFile(ctx context.Context, req UploadFileRequest) (*filedomain.File, error)
	GetByID(ctx context.Context, tenantID, id snowflake.ID) (*Project, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrProjectNotFound  = errs.Wrap(errs.ErrNotFound, "project_not_found")
	ErrStatusConflict   = errs.Wrap(errs.ErrConflict, "project_status_conflict")
	ErrInvalidTenant    = errs.NewValidation("tenant_id", "invalid_tenant", "tenant is required")
	ErrInvalidClient    = errs.NewValidation("client_id", "invalid_client", "client is required")
	ErrInvalidTitle     = errs.NewValidation("title", "invalid_title", "title is required")
	ErrEmptyFile        = errs.NewValidation("file", "empty_file", "file is empty")
	ErrInvalidPageToken = errs.NewValidation("page_token", "invalid_page_token", "page token is malformed")
)
