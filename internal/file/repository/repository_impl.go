package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/file/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, file *domain.File) error {
	return db.WithContext(ctx).Create(file).Error
}

func (r *repo) ListByProject(ctx context.Context, db *gorm.DB, tenantID, projectID snowflake.ID) ([]*domain.File, error) {
	var files []*domain.File
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND project_id = ?", tenantID, projectID).
		Order("created_at asc, id asc").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&domain.File{}).Error
}
