package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/agencyflow/internal/clock"
	"github.com/smallbiznis/agencyflow/internal/config"
	"github.com/smallbiznis/agencyflow/internal/fanout"
	"github.com/smallbiznis/agencyflow/internal/notification/domain"
	"github.com/smallbiznis/agencyflow/internal/notification/repository"
	"github.com/smallbiznis/agencyflow/internal/observability/metrics"
	"github.com/smallbiznis/agencyflow/internal/realtime"
	"github.com/smallbiznis/agencyflow/internal/realtime/realtimetest"
	"github.com/smallbiznis/agencyflow/pkg/db/dbtest"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc       domain.Service
	db        *gorm.DB
	node      *snowflake.Node
	publisher *realtimetest.Recorder
	clock     *clock.FakeClock
}

func setup(t *testing.T, policy string) fixture {
	t.Helper()
	db := dbtest.Open(t, &domain.Notification{})
	node := dbtest.Node(t)
	lifecycle := config.StaticLifecycle{FanoutPolicy: policy, ChannelTimeout: time.Second}
	dispatcher := fanout.NewDispatcher(zap.NewNop(),
		metrics.NewFanoutMetrics(prometheus.NewRegistry(), metrics.Config{}), lifecycle)
	publisher := &realtimetest.Recorder{}
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	svc := NewService(db, zap.NewNop(), node, clk, repository.Provide(), publisher, dispatcher, lifecycle, nil)
	return fixture{svc: svc, db: db, node: node, publisher: publisher, clock: clk}
}

func (f fixture) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.Notification{}).Count(&n).Error)
	return n
}

func TestDispatchPersistsThenPublishes(t *testing.T) {
	f := setup(t, config.FanoutPolicyUniform)
	tenantID := f.node.Generate()
	userID := f.node.Generate()

	n, err := f.svc.Dispatch(context.Background(), domain.DispatchRequest{
		TenantID: tenantID,
		UserID:   userID,
		Type:     domain.TypeInvoiceSent,
		Message:  "Invoice INV-1 for USD 1,500.00 was sent",
	})
	require.NoError(t, err)
	assert.False(t, n.Read)
	assert.EqualValues(t, 1, f.count(t))

	calls := f.publisher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, realtime.TenantChannel(tenantID.String()), calls[0].Channel)
	assert.Equal(t, realtime.EventNotificationCreated, calls[0].Event)
}

func TestDispatchPublishFailureUniformIsSwallowed(t *testing.T) {
	f := setup(t, config.FanoutPolicyUniform)
	f.publisher.SetErr(errors.New("redis down"))

	n, err := f.svc.Dispatch(context.Background(), domain.DispatchRequest{
		TenantID: f.node.Generate(),
		UserID:   f.node.Generate(),
		Type:     domain.TypeStatusChange,
		Message:  "Project moved to IN_PROGRESS",
	})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.EqualValues(t, 1, f.count(t))
}

func TestDispatchPublishFailureLegacyPropagates(t *testing.T) {
	f := setup(t, config.FanoutPolicyLegacy)
	f.publisher.SetErr(errors.New("redis down"))

	n, err := f.svc.Dispatch(context.Background(), domain.DispatchRequest{
		TenantID: f.node.Generate(),
		UserID:   f.node.Generate(),
		Type:     domain.TypeStatusChange,
		Message:  "Project moved to IN_PROGRESS",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPublishFailed)
	var fanErr *fanout.Error
	assert.True(t, errors.As(err, &fanErr))
	require.NotNil(t, n, "the committed row is still returned")
	assert.EqualValues(t, 1, f.count(t))
}

func TestDispatchPersistFailureSkipsPublish(t *testing.T) {
	f := setup(t, config.FanoutPolicyUniform)
	require.NoError(t, f.db.Migrator().DropTable(&domain.Notification{}))

	_, err := f.svc.Dispatch(context.Background(), domain.DispatchRequest{
		TenantID: f.node.Generate(),
		UserID:   f.node.Generate(),
		Type:     domain.TypeStatusChange,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistFailed)
	assert.Empty(t, f.publisher.Calls())
}

func TestDispatchRequiresRecipient(t *testing.T) {
	f := setup(t, config.FanoutPolicyUniform)
	_, err := f.svc.Dispatch(context.Background(), domain.DispatchRequest{TenantID: f.node.Generate(), Type: domain.TypeStatusChange})
	assert.ErrorIs(t, err, domain.ErrInvalidRecipient)
}

func TestMarkAllReadWithoutUnreadIsNoop(t *testing.T) {
	f := setup(t, config.FanoutPolicyUniform)

	affected, err := f.svc.MarkAllRead(context.Background(), f.node.Generate(), f.node.Generate())
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestMarkReadIsRecipientScoped(t *testing.T) {
	f := setup(t, config.FanoutPolicyUniform)
	ctx := context.Background()
	tenantID := f.node.Generate()
	userID := f.node.Generate()
	otherUser := f.node.Generate()

	n, err := f.svc.Dispatch(ctx, domain.DispatchRequest{TenantID: tenantID, UserID: userID, Type: domain.TypeInvoicePaid, Message: "paid"})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRead(ctx, tenantID, otherUser, n.ID))
	unread, err := f.svc.UnreadCount(ctx, tenantID, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	require.NoError(t, f.svc.MarkRead(ctx, f.node.Generate(), userID, n.ID))
	unread, err = f.svc.UnreadCount(ctx, tenantID, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	require.NoError(t, f.svc.MarkRead(ctx, tenantID, userID, n.ID))
	unread, err = f.svc.UnreadCount(ctx, tenantID, userID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	require.NoError(t, f.svc.MarkRead(ctx, tenantID, userID, n.ID), "marking twice is still success")
}

func TestMarkAllReadAndList(t *testing.T) {
	f := setup(t, config.FanoutPolicyUniform)
	ctx := context.Background()
	tenantID := f.node.Generate()
	userID := f.node.Generate()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Dispatch(ctx, domain.DispatchRequest{TenantID: tenantID, UserID: userID, Type: domain.TypeStatusChange, Message: "changed"})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	page, err := f.svc.List(ctx, domain.ListRequest{TenantID: tenantID, UserID: userID, UnreadOnly: true, Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.True(t, page.HasMore)
	assert.EqualValues(t, 3, page.UnreadCount)

	affected, err := f.svc.MarkAllRead(ctx, tenantID, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)

	page, err = f.svc.List(ctx, domain.ListRequest{TenantID: tenantID, UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)
	assert.Zero(t, page.UnreadCount)
}

func TestListAndUnreadCountAreRecipientScoped(t *testing.T) {
	f := setup(t, config.FanoutPolicyUniform)
	ctx := context.Background()
	tenantID := f.node.Generate()
	userID := f.node.Generate()
	otherUser := f.node.Generate()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Dispatch(ctx, domain.DispatchRequest{TenantID: tenantID, UserID: userID, Type: domain.TypeStatusChange, Message: "mine"})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}
	_, err := f.svc.Dispatch(ctx, domain.DispatchRequest{TenantID: tenantID, UserID: otherUser, Type: domain.TypeStatusChange, Message: "theirs"})
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, domain.DispatchRequest{TenantID: f.node.Generate(), UserID: userID, Type: domain.TypeStatusChange, Message: "elsewhere"})
	require.NoError(t, err)

	unread, err := f.svc.UnreadCount(ctx, tenantID, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, unread)

	first, err := f.svc.List(ctx, domain.ListRequest{TenantID: tenantID, UserID: userID, Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Notifications, 2)
	require.True(t, first.HasMore)

	second, err := f.svc.List(ctx, domain.ListRequest{TenantID: tenantID, UserID: userID, Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Notifications, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "mine", second.Notifications[0].Message)
	assert.True(t, second.Notifications[0].CreatedAt.Before(first.Notifications[1].CreatedAt))
}
