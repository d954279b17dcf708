package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/pkg/db/option"
	"gorm.io/gorm"
)

// DefaultTenantColumn is the tenant key of every tenant-owned table.
const DefaultTenantColumn = "tenant_id"

type store[T any] struct {
	db           *gorm.DB
	tenantColumn string
}

// ProvideStore returns a store keyed on tenant_id.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db, tenantColumn: DefaultTenantColumn}
}

// ProvideRootStore returns a store for the tenant table itself, where the
// primary key is the tenant.
func ProvideRootStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db, tenantColumn: "id"}
}

func (r *store[T]) FindByID(ctx context.Context, tenantID, id snowflake.ID, opts ...option.QueryOption) (*T, error) {
	if tenantID == 0 || id == 0 {
		return nil, nil
	}
	var result T
	err := r.scoped(ctx, tenantID, opts...).
		Where("id = ?", id).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Find(ctx context.Context, tenantID snowflake.ID, opts ...option.QueryOption) ([]*T, error) {
	if tenantID == 0 {
		return nil, nil
	}
	var result []*T
	err := r.scoped(ctx, tenantID, opts...).Find(&result).Error
	return result, err
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *store[T]) Count(ctx context.Context, tenantID snowflake.ID, opts ...option.QueryOption) (int64, error) {
	if tenantID == 0 {
		return 0, nil
	}
	var count int64
	err := r.scoped(ctx, tenantID, opts...).Count(&count).Error
	return count, err
}

func (r *store[T]) scoped(ctx context.Context, tenantID snowflake.ID, opts ...option.QueryOption) *gorm.DB {
	stmt := r.db.WithContext(ctx).Model(new(T)).Where(r.tenantColumn+" = ?", tenantID)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
