package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/activity/domain"
	"github.com/smallbiznis/agencyflow/internal/clock"
	obscontext "github.com/smallbiznis/agencyflow/internal/observability/context"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(db *gorm.DB, log *zap.Logger, genID *snowflake.Node, clk clock.Clock, repo domain.Repository) domain.Service {
	return &Service{
		db:    db,
		log:   log.Named("activity.service"),
		genID: genID,
		clock: clk,
		repo:  repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.Activity, error) {
	if strings.TrimSpace(string(req.Type)) == "" {
		return nil, domain.ErrInvalidType
	}
	if req.ProjectID == 0 {
		return nil, domain.ErrInvalidProject
	}

	payload := map[string]any{}
	for key, value := range req.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := domain.Activity{
		ID:          s.genID.Generate(),
		TenantID:    req.TenantID,
		ProjectID:   req.ProjectID,
		UserID:      normalizeActor(req.ActorID),
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.clock.Now(),
	}
	if len(payload) > 0 {
		entry.Metadata = datatypes.JSONMap(payload)
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write activity",
			zap.String("type", string(req.Type)),
			zap.String("project_id", req.ProjectID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return &entry, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.ProjectID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidProject
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
		TenantID:  req.TenantID,
		ProjectID: req.ProjectID,
		Cursor:    cursor,
		Limit:     limit,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.Trim(items, limit, func(item *domain.Activity) pagination.Cursor {
		return pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		}
	})

	activities := make([]domain.Activity, 0, len(items))
	for _, item := range items {
		activities = append(activities, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Activities: activities}, nil
}

func normalizeActor(id *snowflake.ID) *snowflake.ID {
	if id == nil || *id == 0 {
		return nil
	}
	actor := *id
	return &actor
}
