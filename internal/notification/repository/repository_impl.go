package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/notification/domain"
	"github.com/smallbiznis/agencyflow/pkg/db/option"
	"github.com/smallbiznis/agencyflow/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return repository.ProvideStore[domain.Notification](db).Create(ctx, n)
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, tenantID, userID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND tenant_id = ? AND user_id = ? AND is_read = ?", id, tenantID, userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkAllRead(ctx context.Context, db *gorm.DB, tenantID, userID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("tenant_id = ? AND user_id = ? AND is_read = ?", tenantID, userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Notification, error) {
	opts := []option.QueryOption{recipient(filter.UserID)}
	if filter.UnreadOnly {
		opts = append(opts, unread())
	}
	if filter.Cursor != nil {
		opts = append(opts, option.WithKeyset(filter.Cursor.CreatedAt, filter.Cursor.ID))
	}
	opts = append(opts, option.WithSortBy(option.QuerySortBy{}))
	if filter.Limit > 0 {
		opts = append(opts, option.WithLimit(filter.Limit+1))
	}
	return repository.ProvideStore[domain.Notification](db).Find(ctx, filter.TenantID, opts...)
}

func (r *repo) CountUnread(ctx context.Context, db *gorm.DB, tenantID, userID snowflake.ID) (int64, error) {
	return repository.ProvideStore[domain.Notification](db).Count(ctx, tenantID, recipient(userID), unread())
}

func recipient(userID snowflake.ID) option.QueryOption {
	return option.ApplyOperator(option.Condition{Field: "user_id", Operator: option.EQ, Value: userID})
}

func unread() option.QueryOption {
	return option.ApplyOperator(option.Condition{Field: "is_read", Operator: option.EQ, Value: false})
}
