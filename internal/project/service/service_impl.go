package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/agencyflow/internal/activity/domain"
	"github.com/smallbiznis/agencyflow/internal/clock"
	"github.com/smallbiznis/agencyflow/internal/config"
	directorydomain "github.com/smallbiznis/agencyflow/internal/directory/domain"
	"github.com/smallbiznis/agencyflow/internal/fanout"
	filedomain "github.com/smallbiznis/agencyflow/internal/file/domain"
	"github.com/smallbiznis/agencyflow/internal/mailer"
	notificationdomain "github.com/smallbiznis/agencyflow/internal/notification/domain"
	"github.com/smallbiznis/agencyflow/internal/observability/metrics"
	"github.com/smallbiznis/agencyflow/internal/project/domain"
	"github.com/smallbiznis/agencyflow/internal/realtime"
	"github.com/smallbiznis/agencyflow/internal/storage"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	eventProjectCreated = "project.created"
	eventStatusChanged  = "project.status_changed"
	eventFileUploaded   = "project.file_uploaded"

	channelActivity     = "activity"
	channelRealtime     = "realtime"
	channelNotification = "notification"
	channelEmail        = "email"
)

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	files         filedomain.Repository
	directory     directorydomain.Service
	activities    activitydomain.Service
	notifications notificationdomain.Service
	publisher     realtime.Publisher
	mailer        mailer.Sender
	storage       storage.Provider
	fanout        *fanout.Dispatcher
	lifecycle     config.LifecycleSource
	metrics       *metrics.Metrics
}

func NewService(
	db *gorm.DB,
	log *zap.Logger,
	genID *snowflake.Node,
	clk clock.Clock,
	repo domain.Repository,
	files filedomain.Repository,
	directory directorydomain.Service,
	activities activitydomain.Service,
	notifications notificationdomain.Service,
	publisher realtime.Publisher,
	sender mailer.Sender,
	blobs storage.Provider,
	dispatcher *fanout.Dispatcher,
	lifecycle config.LifecycleSource,
	m *metrics.Metrics,
) domain.Service {
	return &Service{
		db:            db,
		log:           log.Named("project.service"),
		genID:         genID,
		clock:         clk,
		repo:          repo,
		files:         files,
		directory:     directory,
		activities:    activities,
		notifications: notifications,
		publisher:     publisher,
		mailer:        sender,
		storage:       blobs,
		fanout:        dispatcher,
		lifecycle:     lifecycle,
		metrics:       m,
	}
}

// Create stores the project and then records it and welcomes the client.
// Every follow-up channel is best-effort.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Project, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if req.ClientID == 0 {
		return nil, domain.ErrInvalidClient
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	status := domain.StatusPending
	if strings.TrimSpace(req.Status) != "" {
		parsed, err := domain.Lifecycle.Parse(req.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	if _, err := s.directory.GetClient(ctx, req.TenantID, req.ClientID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	project := domain.Project{
		ID:          s.genID.Generate(),
		TenantID:    req.TenantID,
		ClientID:    req.ClientID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &project); err != nil {
		return nil, err
	}
	s.log.Info("project created",
		zap.String("tenant_id", project.TenantID.String()),
		zap.String("project_id", project.ID.String()),
	)

	channels := []fanout.Channel{
		s.activityChannel(project.TenantID, project.ID, req.ActorID, activitydomain.TypeProjectCreated,
			"Project "+project.Title+" created", map[string]any{"status": string(project.Status)}),
	}

	recipient, err := s.directory.ResolveRecipient(ctx, project.TenantID, project.ClientID)
	if err != nil {
		s.log.Warn("project recipient not resolved", zap.String("project_id", project.ID.String()), zap.Error(err))
	} else if recipient.HasPortalUser() {
		projectID := project.ID
		channels = append(channels,
			fanout.Channel{
				Name:   channelNotification,
				Policy: fanout.PolicyBestEffort,
				Run: func(ctx context.Context) error {
					_, err := s.notifications.Dispatch(ctx, notificationdomain.DispatchRequest{
						TenantID:  project.TenantID,
						UserID:    recipient.PortalUser.ID,
						Type:      notificationdomain.TypeProjectCreated,
						Message:   "New project " + project.Title + " has been created",
						ProjectID: &projectID,
					})
					return err
				},
			},
			fanout.Channel{
				Name:   channelEmail,
				Policy: fanout.PolicyBestEffort,
				Run: func(ctx context.Context) error {
					res := s.mailer.SendTemplate(ctx, recipient.Business.EmailFrom, recipient.Email(), mailer.TemplateProjectCreated,
						mailer.ProjectCreatedData{
							BusinessName: recipient.Business.Name,
							BrandColor:   recipient.Business.BrandColor,
							ClientName:   recipient.Client.Name,
							ProjectTitle: project.Title,
							Description:  project.Description,
						})
					return res.Err
				},
			},
		)
	}

	if err := s.fanout.Run(ctx, eventProjectCreated, project.ID.String(), channels); err != nil {
		s.log.Warn("project created fan-out reported failures", zap.Error(err))
	}
	return &project, nil
}

// UpdateStatus commits the new status, then runs activity, realtime and
// notification in that order. The notification row is always fatal; realtime
// is fatal only under the legacy policy. Fatal failures come back as a
// *fanout.Error next to the committed project.
func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Project, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	target, err := domain.Lifecycle.Parse(req.Status)
	if err != nil {
		return nil, err
	}

	project, err := s.repo.FindByID(ctx, s.db, req.TenantID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}

	lifecycle := s.lifecycle.Get()
	from := project.Status
	if err := domain.Lifecycle.Check(from, target, lifecycle.StrictTransitions); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	affected, err := s.repo.UpdateStatus(ctx, s.db, req.TenantID, req.ProjectID, from, target, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		current, err := s.repo.FindByID(ctx, s.db, req.TenantID, req.ProjectID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, domain.ErrProjectNotFound
		}
		return nil, domain.ErrStatusConflict
	}
	project.Status = target
	project.UpdatedAt = now

	s.metrics.RecordProjectTransition(ctx, string(from), string(target))
	s.log.Info("project status changed",
		zap.String("tenant_id", project.TenantID.String()),
		zap.String("project_id", project.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)

	realtimePolicy := fanout.PolicyBestEffort
	if lifecycle.LegacyFanout() {
		realtimePolicy = fanout.PolicyFatal
	}

	projectID := project.ID
	channels := []fanout.Channel{
		s.activityChannel(project.TenantID, project.ID, req.ActingUserID, activitydomain.TypeStatusChange,
			"Status changed from "+string(from)+" to "+string(target),
			map[string]any{"from": string(from), "to": string(target)}),
		{
			Name:   channelRealtime,
			Policy: realtimePolicy,
			Run: func(ctx context.Context) error {
				return s.publisher.Publish(ctx, realtime.ProjectChannel(projectID.String()), realtime.EventStatusUpdated,
					domain.StatusUpdatedPayload{
						ProjectID:      projectID.String(),
						Status:         target,
						PreviousStatus: from,
						UpdatedAt:      now,
					})
			},
		},
		{
			Name:   channelNotification,
			Policy: fanout.PolicyFatal,
			Run: func(ctx context.Context) error {
				recipient, err := s.directory.ResolveRecipient(ctx, project.TenantID, project.ClientID)
				if err != nil {
					return err
				}
				if !recipient.HasPortalUser() {
					return nil
				}
				_, err = s.notifications.Dispatch(ctx, notificationdomain.DispatchRequest{
					TenantID:  project.TenantID,
					UserID:    recipient.PortalUser.ID,
					Type:      notificationdomain.TypeStatusChange,
					Message:   "Project " + project.Title + " is now " + string(target),
					ProjectID: &projectID,
				})
				return err
			},
		},
	}

	if err := s.fanout.Run(ctx, eventStatusChanged, project.ID.String(), channels); err != nil {
		return project, err
	}
	return project, nil
}

// Delete removes every file blob and row of the project, then the project.
// Blob failures are logged and skipped; row failures abort.
func (s *Service) Delete(ctx context.Context, tenantID, projectID snowflake.ID) error {
	if tenantID == 0 {
		return domain.ErrInvalidTenant
	}
	project, err := s.repo.FindByID(ctx, s.db, tenantID, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return domain.ErrProjectNotFound
	}

	files, err := s.files.ListByProject(ctx, s.db, tenantID, projectID)
	if err != nil {
		return err
	}
	for _, file := range files {
		if file.HasRemote() {
			if err := s.storage.Delete(ctx, *file.RemoteID); err != nil {
				s.log.Warn("failed to delete file blob",
					zap.String("project_id", projectID.String()),
					zap.String("file_id", file.ID.String()),
					zap.String("remote_id", *file.RemoteID),
					zap.Error(err),
				)
			}
		}
		if err := s.files.Delete(ctx, s.db, tenantID, file.ID); err != nil {
			return err
		}
	}

	affected, err := s.repo.Delete(ctx, s.db, tenantID, projectID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrProjectNotFound
	}
	s.log.Info("project deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("project_id", projectID.String()),
		zap.Int("files", len(files)),
	)
	return nil
}

// UploadFile stores the blob under the tenant's project folder and records
// the file. If the row cannot be written the blob is removed again.
func (s *Service) UploadFile(ctx context.Context, req domain.UploadFileRequest) (*filedomain.File, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if len(req.Data) == 0 {
		return nil, domain.ErrEmptyFile
	}
	project, err := s.repo.FindByID(ctx, s.db, req.TenantID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}

	name := strings.TrimSpace(req.Filename)
	if name == "" {
		name = "file"
	}
	object, err := s.storage.Upload(ctx, storage.UploadRequest{
		Folder:      storage.FolderPath(req.TenantID.String(), project.ID.String()),
		Filename:    name,
		ContentType: req.ContentType,
		Data:        req.Data,
	})
	if err != nil {
		return nil, err
	}

	projectID := project.ID
	file := filedomain.File{
		ID:          s.genID.Generate(),
		TenantID:    req.TenantID,
		ProjectID:   &projectID,
		Name:        name,
		ContentType: req.ContentType,
		Size:        object.Size,
		URL:         object.URL,
		CreatedAt:   s.clock.Now(),
	}
	if object.RemoteID != "" {
		remoteID := object.RemoteID
		file.RemoteID = &remoteID
	}
	if err := s.files.Insert(ctx, s.db, &file); err != nil {
		if file.HasRemote() {
			if delErr := s.storage.Delete(ctx, *file.RemoteID); delErr != nil {
				s.log.Warn("failed to remove orphaned blob", zap.String("remote_id", *file.RemoteID), zap.Error(delErr))
			}
		}
		return nil, err
	}

	channels := []fanout.Channel{
		s.activityChannel(project.TenantID, project.ID, req.ActorID, activitydomain.TypeFileUploaded,
			"File "+file.Name+" uploaded",
			map[string]any{"file_id": file.ID.String(), "size": file.Size}),
		{
			Name:   channelRealtime,
			Policy: fanout.PolicyBestEffort,
			Run: func(ctx context.Context) error {
				return s.publisher.Publish(ctx, realtime.ProjectChannel(projectID.String()), realtime.EventFileUploaded, file)
			},
		},
	}
	if err := s.fanout.Run(ctx, eventFileUploaded, file.ID.String(), channels); err != nil {
		s.log.Warn("file upload fan-out reported failures", zap.Error(err))
	}
	return &file, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id snowflake.ID) (*domain.Project, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	project, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}
	return project, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.TenantID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidTenant
	}

	filter := domain.ListFilter{
		TenantID: req.TenantID,
		ClientID: req.ClientID,
		Limit:    req.Limit(),
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := domain.Lifecycle.Parse(req.Status)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Status = status
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := decodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Cursor = cursor
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, filter.Limit, func(item *domain.Project) pagination.Cursor {
		return pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		}
	})

	projects := make([]domain.Project, 0, len(items))
	for _, item := range items {
		projects = append(projects, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Projects: projects}, nil
}

func (s *Service) activityChannel(tenantID, projectID snowflake.ID, actorID *snowflake.ID, t activitydomain.Type, description string, metadata map[string]any) fanout.Channel {
	return fanout.Channel{
		Name:   channelActivity,
		Policy: fanout.PolicyBestEffort,
		Run: func(ctx context.Context) error {
			_, err := s.activities.Record(ctx, activitydomain.RecordRequest{
				TenantID:    tenantID,
				ProjectID:   projectID,
				ActorID:     actorID,
				Type:        t,
				Description: description,
				Metadata:    metadata,
			})
			return err
		},
	}
}

func decodeCursor(token string) (*domain.Cursor, error) {
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	createdAt, err := decoded.CreatedAtTime()
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidPageToken
	}
	return &domain.Cursor{ID: id, CreatedAt: createdAt}, nil
}
