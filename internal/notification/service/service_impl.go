package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/clock"
	"github.com/smallbiznis/agencyflow/internal/config"
	"github.com/smallbiznis/agencyflow/internal/fanout"
	"github.com/smallbiznis/agencyflow/internal/notification/domain"
	"github.com/smallbiznis/agencyflow/internal/observability/metrics"
	"github.com/smallbiznis/agencyflow/internal/realtime"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const channelRealtime = "realtime"

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	publisher realtime.Publisher
	fanout    *fanout.Dispatcher
	lifecycle config.LifecycleSource
	metrics   *metrics.Metrics
}

func NewService(
	db *gorm.DB,
	log *zap.Logger,
	genID *snowflake.Node,
	clk clock.Clock,
	repo domain.Repository,
	publisher realtime.Publisher,
	dispatcher *fanout.Dispatcher,
	lifecycle config.LifecycleSource,
	m *metrics.Metrics,
) domain.Service {
	return &Service{
		db:        db,
		log:       log.Named("notification.service"),
		genID:     genID,
		clock:     clk,
		repo:      repo,
		publisher: publisher,
		fanout:    dispatcher,
		lifecycle: lifecycle,
		metrics:   m,
	}
}

// Dispatch persists the notification, then publishes it on the tenant
// channel. A failed insert is always returned. A failed publish is returned
// only under the legacy fan-out policy, wrapped in ErrPublishFailed and
// alongside the committed row.
func (s *Service) Dispatch(ctx context.Context, req domain.DispatchRequest) (*domain.Notification, error) {
	if req.UserID == 0 {
		return nil, domain.ErrInvalidRecipient
	}
	if strings.TrimSpace(string(req.Type)) == "" {
		return nil, domain.ErrInvalidType
	}

	n := domain.Notification{
		ID:        s.genID.Generate(),
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		Type:      req.Type,
		Message:   strings.TrimSpace(req.Message),
		ProjectID: req.ProjectID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &n); err != nil {
		s.log.Error("failed to persist notification",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("type", string(req.Type)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistFailed, err)
	}
	s.metrics.RecordNotification(ctx, string(n.Type))

	policy := fanout.PolicyBestEffort
	if s.lifecycle.Get().LegacyFanout() {
		policy = fanout.PolicyFatal
	}
	err := s.fanout.Run(ctx, realtime.EventNotificationCreated, n.ID.String(), []fanout.Channel{
		{
			Name:   channelRealtime,
			Policy: policy,
			Run: func(ctx context.Context) error {
				return s.publisher.Publish(ctx, realtime.TenantChannel(n.TenantID.String()), realtime.EventNotificationCreated, n)
			},
		},
	})
	if err != nil {
		return &n, fmt.Errorf("%w: %w", domain.ErrPublishFailed, err)
	}
	return &n, nil
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID snowflake.ID) error {
	if tenantID == 0 || userID == 0 {
		return domain.ErrInvalidRecipient
	}
	affected, err := s.repo.MarkRead(ctx, s.db, tenantID, userID, notificationID)
	if err != nil {
		return err
	}
	s.log.Debug("notification marked read",
		zap.String("notification_id", notificationID.String()),
		zap.Int64("rows", affected),
	)
	return nil
}

// MarkAllRead flips every unread notification of the recipient. Zero rows is
// not an error.
func (s *Service) MarkAllRead(ctx context.Context, tenantID, userID snowflake.ID) (int64, error) {
	if tenantID == 0 || userID == 0 {
		return 0, domain.ErrInvalidRecipient
	}
	return s.repo.MarkAllRead(ctx, s.db, tenantID, userID)
}

func (s *Service) UnreadCount(ctx context.Context, tenantID, userID snowflake.ID) (int64, error) {
	if tenantID == 0 || userID == 0 {
		return 0, domain.ErrInvalidRecipient
	}
	return s.repo.CountUnread(ctx, s.db, tenantID, userID)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.TenantID == 0 || req.UserID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidRecipient
	}

	var cursor *domain.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := decoded.CreatedAtTime()
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		TenantID:   req.TenantID,
		UserID:     req.UserID,
		UnreadOnly: req.UnreadOnly,
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, limit, func(item *domain.Notification) pagination.Cursor {
		return pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		}
	})

	unread, err := s.repo.CountUnread(ctx, s.db, req.TenantID, req.UserID)
	if err != nil {
		return domain.ListResponse{}, err
	}

	notifications := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		notifications = append(notifications, *item)
	}
	return domain.ListResponse{
		PageInfo:      pageInfo,
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}
