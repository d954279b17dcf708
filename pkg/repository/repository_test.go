package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/pkg/db/dbtest"
	"github.com/smallbiznis/agencyflow/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"not null;index"`
	Name      string
	CreatedAt time.Time
}

func TestStoreIsTenantScoped(t *testing.T) {
	db := dbtest.Open(t, &widget{})
	store := ProvideStore[widget](db)
	ctx := context.Background()
	now := time.Date(2024, 7, 9, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &widget{ID: 1, TenantID: 10, Name: "a", CreatedAt: now}))
	require.NoError(t, store.Create(ctx, &widget{ID: 2, TenantID: 10, Name: "b", CreatedAt: now.Add(time.Minute)}))
	require.NoError(t, store.Create(ctx, &widget{ID: 3, TenantID: 20, Name: "c", CreatedAt: now}))

	got, err := store.FindByID(ctx, 10, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Name)

	got, err = store.FindByID(ctx, 20, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.FindByID(ctx, 10, 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	items, err := store.Find(ctx, 10, option.WithSortBy(option.QuerySortBy{}), option.WithLimit(1))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Name)

	count, err := store.Count(ctx, 10, option.ApplyOperator(option.Condition{Field: "name", Operator: option.IN, Value: []string{"a", "c"}}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRootStoreUsesPrimaryKey(t *testing.T) {
	db := dbtest.Open(t, &widget{})
	ctx := context.Background()
	require.NoError(t, ProvideStore[widget](db).Create(ctx, &widget{ID: 7, TenantID: 99, Name: "root"}))

	got, err := ProvideRootStore[widget](db).FindByID(ctx, 7, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "root", got.Name)
}

func TestStoreFindResumesAfterKeyset(t *testing.T) {
	db := dbtest.Open(t, &widget{})
	store := ProvideStore[widget](db)
	ctx := context.Background()
	now := time.Date(2024, 7, 9, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &widget{ID: 1, TenantID: 10, Name: "old", CreatedAt: now}))
	require.NoError(t, store.Create(ctx, &widget{ID: 2, TenantID: 10, Name: "tie-low", CreatedAt: now.Add(time.Minute)}))
	require.NoError(t, store.Create(ctx, &widget{ID: 3, TenantID: 10, Name: "tie-high", CreatedAt: now.Add(time.Minute)}))

	items, err := store.Find(ctx, 10,
		option.WithKeyset(now.Add(time.Minute), snowflake.ID(3)),
		option.WithSortBy(option.QuerySortBy{}),
	)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "tie-low", items[0].Name)
	assert.Equal(t, "old", items[1].Name)
}
