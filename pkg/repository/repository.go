package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/pkg/db/option"
)

// Repository is a generic gorm store scoped to one tenant per call. The tenant
// predicate is always applied, and a zero tenant or id never matches a row.
type Repository[T any] interface {
	FindByID(ctx context.Context, tenantID, id snowflake.ID, opts ...option.QueryOption) (*T, error)
	Find(ctx context.Context, tenantID snowflake.ID, opts ...option.QueryOption) ([]*T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, tenantID snowflake.ID, opts ...option.QueryOption) (int64, error)
}
