// Package domain describes files attached to projects. The bytes live in blob
// storage; the row keeps the address needed to reach and delete them.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type File struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID  `gorm:"not null;index" json:"tenant_id"`
	ProjectID   *snowflake.ID `gorm:"index" json:"project_id,omitempty"`
	Name        string        `gorm:"type:text;not null" json:"name"`
	ContentType string        `gorm:"type:varchar(255)" json:"content_type"`
	Size        int64         `gorm:"not null;default:0" json:"size"`
	URL         string        `gorm:"type:text;not null" json:"url"`
	RemoteID    *string       `gorm:"type:text" json:"remote_id,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
}

func (File) TableName() string { return "files" }

// HasRemote reports whether the blob can be deleted from storage.
func (f File) HasRemote() bool {
	return f.RemoteID != nil && *f.RemoteID != ""
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, file *File) error
	ListByProject(ctx context.Context, db *gorm.DB, tenantID, projectID snowflake.ID) ([]*File, error)
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error
}
