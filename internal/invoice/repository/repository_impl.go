package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/invoice/domain"
	"github.com/smallbiznis/agencyflow/pkg/db/option"
	"github.com/smallbiznis/agencyflow/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert writes the invoice and its line items. Callers run it inside a
// transaction.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	return repository.ProvideStore[domain.Invoice](db).FindByID(ctx, tenantID, id, withLineItems())
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, from domain.Status, values map[string]any) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, from).
		Updates(values)
	return res.RowsAffected, res.Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	opts := []option.QueryOption{withLineItems()}
	if filter.Status != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "status", Operator: option.EQ, Value: filter.Status}))
	}
	if filter.ClientID != 0 {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "client_id", Operator: option.EQ, Value: filter.ClientID}))
	}
	if filter.Cursor != nil {
		opts = append(opts, option.WithKeyset(filter.Cursor.CreatedAt, filter.Cursor.ID))
	}
	opts = append(opts, option.WithSortBy(option.QuerySortBy{}))
	if filter.Limit > 0 {
		opts = append(opts, option.WithLimit(filter.Limit+1))
	}
	return repository.ProvideStore[domain.Invoice](db).Find(ctx, filter.TenantID, opts...)
}

func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	count, err := repository.ProvideStore[domain.Invoice](db).Count(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

func withLineItems() option.QueryOption {
	return option.WithPreload("LineItems", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position asc")
	})
}
