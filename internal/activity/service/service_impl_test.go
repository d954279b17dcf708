package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/agencyflow/internal/activity/domain"
	"github.com/smallbiznis/agencyflow/internal/activity/repository"
	"github.com/smallbiznis/agencyflow/internal/clock"
	obscontext "github.com/smallbiznis/agencyflow/internal/observability/context"
	"github.com/smallbiznis/agencyflow/pkg/db/dbtest"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordAndList(t *testing.T) {
	db := dbtest.Open(t, &domain.Activity{})
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(db, zap.NewNop(), node, clk, repository.Provide())

	tenantID := node.Generate()
	projectID := node.Generate()
	actorID := node.Generate()
	ctx := obscontext.WithRequestID(context.Background(), "req-1")

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TenantID:    tenantID,
			ProjectID:   projectID,
			ActorID:     &actorID,
			Type:        domain.TypeStatusChange,
			Description: "status changed",
			Metadata:    map[string]any{"step": i},
		})
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}
	_, err := svc.Record(ctx, domain.RecordRequest{
		TenantID:    node.Generate(),
		ProjectID:   projectID,
		Type:        domain.TypeStatusChange,
		Description: "other tenant",
	})
	require.NoError(t, err)

	page, err := svc.List(context.Background(), domain.ListRequest{
		TenantID:   tenantID,
		ProjectID:  projectID,
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Activities, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "req-1", page.Activities[0].Metadata["request_id"])
	assert.True(t, page.Activities[0].CreatedAt.After(page.Activities[1].CreatedAt))

	next, err := svc.List(context.Background(), domain.ListRequest{
		TenantID:   tenantID,
		ProjectID:  projectID,
		Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, next.Activities, 1)
	assert.False(t, next.HasMore)
}

func TestRecordValidates(t *testing.T) {
	db := dbtest.Open(t, &domain.Activity{})
	node := dbtest.Node(t)
	svc := NewService(db, zap.NewNop(), node, clock.NewFakeClock(time.Now()), repository.Provide())

	_, err := svc.Record(context.Background(), domain.RecordRequest{ProjectID: node.Generate()})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = svc.Record(context.Background(), domain.RecordRequest{Type: domain.TypeFileUploaded})
	assert.ErrorIs(t, err, domain.ErrInvalidProject)
}
