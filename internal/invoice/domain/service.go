package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/agencyflow/internal/errs"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type LineItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
}

type CreateRequest struct {
	TenantID      snowflake.ID
	ClientID      snowflake.ID
	InvoiceNumber string
	LineItems     []LineItemInput
	Status        string
	DueAt         *time.Time
}

type TransitionRequest struct {
	TenantID  snowflake.ID
	InvoiceID snowflake.ID
	Status    string
}

type ListRequest struct {
	pagination.Pagination
	TenantID snowflake.ID
	Status   string
	ClientID snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
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

// Document is a rendered, downloadable artifact.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Invoice, error)
	// UpdateStatus applies values only while the stored status still equals
	// from, so a concurrent transition leaves zero rows affected.
	UpdateStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, from Status, values map[string]any) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
	NextSequence(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Invoice, error)
	TransitionStatus(ctx context.Context, req TransitionRequest) (*Invoice, error)
	GetByID(ctx context.Context, tenantID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	RenderPDF(ctx context.Context, tenantID, id snowflake.ID) (Document, error)
}

var (
	ErrInvoiceNotFound  = errs.Wrap(errs.ErrNotFound, "invoice_not_found")
	ErrDuplicateNumber  = errs.Wrap(errs.ErrConflict, "invoice_number_conflict")
	ErrStatusConflict   = errs.Wrap(errs.ErrConflict, "invoice_status_conflict")
	ErrInvalidTenant    = errs.NewValidation("tenant_id", "invalid_tenant", "tenant is required")
	ErrInvalidPageToken = errs.NewValidation("page_token", "invalid_page_token", "page token is malformed")

	ErrRendererUnavailable = errors.New("invoice_renderer_unavailable")
)
