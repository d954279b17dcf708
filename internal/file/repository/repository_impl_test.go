package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/agencyflow/internal/file/domain"
	"github.com/smallbiznis/agencyflow/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListByProjectIsTenantScoped(t *testing.T) {
	db := dbtest.Open(t, &domain.File{})
	node := dbtest.Node(t)
	repo := Provide()
	ctx := context.Background()

	tenantID := node.Generate()
	projectID := node.Generate()
	otherTenant := node.Generate()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mine := &domain.File{ID: node.Generate(), TenantID: tenantID, ProjectID: &projectID, Name: "a.png", URL: "u", CreatedAt: now}
	foreign := &domain.File{ID: node.Generate(), TenantID: otherTenant, ProjectID: &projectID, Name: "b.png", URL: "u", CreatedAt: now}
	require.NoError(t, repo.Insert(ctx, db, mine))
	require.NoError(t, repo.Insert(ctx, db, foreign))

	files, err := repo.ListByProject(ctx, db, tenantID, projectID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, mine.ID, files[0].ID)
	assert.False(t, files[0].HasRemote())

	require.NoError(t, repo.Delete(ctx, db, otherTenant, mine.ID))
	files, err = repo.ListByProject(ctx, db, tenantID, projectID)
	require.NoError(t, err)
	assert.Len(t, files, 1, "delete from another tenant must not match")

	require.NoError(t, repo.Delete(ctx, db, tenantID, mine.ID))
	files, err = repo.ListByProject(ctx, db, tenantID, projectID)
	require.NoError(t, err)
	assert.Empty(t, files)
}
