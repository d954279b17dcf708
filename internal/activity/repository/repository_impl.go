package repository

import (
	"context"

	"github.com/smallbiznis/agencyflow/internal/activity/domain"
	"github.com/smallbiznis/agencyflow/pkg/db/option"
	"github.com/smallbiznis/agencyflow/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Activity) error {
	if entry == nil {
		return nil
	}
	return repository.ProvideStore[domain.Activity](db).Create(ctx, entry)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Activity, error) {
	opts := []option.QueryOption{
		option.ApplyOperator(option.Condition{Field: "project_id", Operator: option.EQ, Value: filter.ProjectID}),
	}
	if filter.Cursor != nil {
		opts = append(opts, option.WithKeyset(filter.Cursor.CreatedAt, filter.Cursor.ID))
	}
	opts = append(opts, option.WithSortBy(option.QuerySortBy{}))
	if filter.Limit > 0 {
		opts = append(opts, option.WithLimit(filter.Limit+1))
	}
	return repository.ProvideStore[domain.Activity](db).Find(ctx, filter.TenantID, opts...)
}
