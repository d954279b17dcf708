package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/clock"
	"github.com/smallbiznis/agencyflow/internal/config"
	directorydomain "github.com/smallbiznis/agencyflow/internal/directory/domain"
	"github.com/smallbiznis/agencyflow/internal/errs"
	"github.com/smallbiznis/agencyflow/internal/fanout"
	"github.com/smallbiznis/agencyflow/internal/invoice/domain"
	"github.com/smallbiznis/agencyflow/internal/invoice/format"
	"github.com/smallbiznis/agencyflow/internal/invoice/render"
	"github.com/smallbiznis/agencyflow/internal/mailer"
	"github.com/smallbiznis/agencyflow/internal/money"
	notificationdomain "github.com/smallbiznis/agencyflow/internal/notification/domain"
	"github.com/smallbiznis/agencyflow/internal/observability/metrics"
	"github.com/smallbiznis/agencyflow/pkg/db"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	eventInvoiceSent = "invoice.sent"
	eventInvoicePaid = "invoice.paid"

	channelNotification = "notification"
	channelEmail        = "email"
)

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	directory     directorydomain.Service
	notifications notificationdomain.Service
	mailer        mailer.Sender
	renderer      render.Renderer
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
	directory directorydomain.Service,
	notifications notificationdomain.Service,
	sender mailer.Sender,
	renderer render.Renderer,
	dispatcher *fanout.Dispatcher,
	lifecycle config.LifecycleSource,
	m *metrics.Metrics,
) domain.Service {
	return &Service{
		db:            db,
		log:           log.Named("invoice.service"),
		genID:         genID,
		clock:         clk,
		repo:          repo,
		directory:     directory,
		notifications: notifications,
		mailer:        sender,
		renderer:      renderer,
		fanout:        dispatcher,
		lifecycle:     lifecycle,
		metrics:       m,
	}
}

// Create prices the line items and stores the invoice with its rows in one
// transaction. The stored totals are final.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Invoice, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if req.ClientID == 0 {
		return nil, errs.NewValidation("client_id", "invalid_client", "client is required")
	}

	status := domain.StatusDraft
	if strings.TrimSpace(req.Status) != "" {
		parsed, err := domain.Lifecycle.Parse(req.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	for i, item := range req.LineItems {
		if strings.TrimSpace(item.Description) == "" {
			return nil, errs.NewValidation(
				fmt.Sprintf("line_items[%d].description", i),
				"missing_description",
				"line item description is required",
			)
		}
	}

	client, err := s.directory.GetClient(ctx, req.TenantID, req.ClientID)
	if err != nil {
		return nil, err
	}
	business, err := s.directory.GetBusiness(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	invoice := domain.Invoice{
		ID:            s.genID.Generate(),
		TenantID:      req.TenantID,
		ClientID:      client.ID,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		Currency:      money.NormalizeCurrency(business.Currency),
		Status:        status,
		DueAt:         req.DueAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch status {
	case domain.StatusSent:
		invoice.SentAt = &now
	case domain.StatusPaid:
		invoice.PaidAt = &now
	}

	invoice.LineItems = make([]domain.LineItem, 0, len(req.LineItems))
	for i, item := range req.LineItems {
		invoice.LineItems = append(invoice.LineItems, domain.LineItem{
			ID:          s.genID.Generate(),
			TenantID:    req.TenantID,
			InvoiceID:   invoice.ID,
			Position:    i,
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			TaxPercent:  item.TaxPercent,
			CreatedAt:   now,
		})
	}

	totals := money.Compute(domain.MoneyItems(invoice.LineItems))
	invoice.Subtotal = totals.Subtotal
	invoice.Tax = totals.Tax
	invoice.Total = totals.Total

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if invoice.InvoiceNumber == "" {
			seq, err := s.repo.NextSequence(ctx, tx, req.TenantID)
			if err != nil {
				return err
			}
			number, err := format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, now, seq)
			if err != nil {
				return err
			}
			invoice.InvoiceNumber = number
		}
		return s.repo.Insert(ctx, tx, &invoice)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateNumber
		}
		return nil, err
	}

	s.metrics.RecordInvoiceCreated(ctx, invoice.Currency)
	s.log.Info("invoice created",
		zap.String("tenant_id", invoice.TenantID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("status", string(invoice.Status)),
	)
	return &invoice, nil
}

// TransitionStatus moves the invoice and then notifies the client. Once the
// row is updated the call succeeds; channel failures are only logged.
func (s *Service) TransitionStatus(ctx context.Context, req domain.TransitionRequest) (*domain.Invoice, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	target, err := domain.Lifecycle.Parse(req.Status)
	if err != nil {
		return nil, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, req.TenantID, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}

	from := invoice.Status
	if err := domain.Lifecycle.Check(from, target, s.lifecycle.Get().StrictTransitions); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	values := map[string]any{
		"status":     target,
		"updated_at": now,
	}
	switch target {
	case domain.StatusSent:
		values["sent_at"] = now
		invoice.SentAt = &now
	case domain.StatusPaid:
		values["paid_at"] = now
		invoice.PaidAt = &now
	}

	affected, err := s.repo.UpdateStatus(ctx, s.db, req.TenantID, req.InvoiceID, from, values)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// The row moved or vanished after it was read.
		current, err := s.repo.FindByID(ctx, s.db, req.TenantID, req.InvoiceID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, domain.ErrStatusConflict
	}
	invoice.Status = target
	invoice.UpdatedAt = now

	s.metrics.RecordInvoiceTransition(ctx, string(from), string(target))
	s.log.Info("invoice status changed",
		zap.String("tenant_id", invoice.TenantID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)

	switch target {
	case domain.StatusSent:
		s.fanOut(ctx, eventInvoiceSent, invoice, notificationdomain.TypeInvoiceSent, true)
	case domain.StatusPaid:
		s.fanOut(ctx, eventInvoicePaid, invoice, notificationdomain.TypeInvoicePaid, false)
	}
	return invoice, nil
}

// fanOut tells the client's portal user about the invoice. Clients without a
// portal login get nothing, email included.
func (s *Service) fanOut(ctx context.Context, event string, invoice *domain.Invoice, notificationType notificationdomain.Type, withEmail bool) {
	recipient, err := s.directory.ResolveRecipient(ctx, invoice.TenantID, invoice.ClientID)
	if err != nil {
		s.log.Warn("invoice recipient not resolved",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
		return
	}
	if !recipient.HasPortalUser() {
		return
	}

	total := money.Format(invoice.Total, invoice.Currency)
	channels := []fanout.Channel{
		{
			Name:   channelNotification,
			Policy: fanout.PolicyBestEffort,
			Run: func(ctx context.Context) error {
				_, err := s.notifications.Dispatch(ctx, notificationdomain.DispatchRequest{
					TenantID: invoice.TenantID,
					UserID:   recipient.PortalUser.ID,
					Type:     notificationType,
					Message:  notificationMessage(invoice.InvoiceNumber, total, notificationType),
				})
				return err
			},
		},
	}
	if withEmail {
		channels = append(channels, fanout.Channel{
			Name:   channelEmail,
			Policy: fanout.PolicyBestEffort,
			Run: func(ctx context.Context) error {
				data := mailer.InvoiceSentData{
					BusinessName:  recipient.Business.Name,
					BrandColor:    recipient.Business.BrandColor,
					ClientName:    recipient.Client.Name,
					InvoiceNumber: invoice.InvoiceNumber,
					Total:         total,
				}
				if invoice.DueAt != nil {
					data.DueDate = invoice.DueAt.Format("02 Jan 2006")
				}
				res := s.mailer.SendTemplate(ctx, recipient.Business.EmailFrom, recipient.Email(), mailer.TemplateInvoiceSent, data)
				return res.Err
			},
		})
	}

	if err := s.fanout.Run(ctx, event, invoice.ID.String(), channels); err != nil {
		s.log.Warn("invoice fan-out reported failures", zap.Error(err))
	}
}

func notificationMessage(number, total string, t notificationdomain.Type) string {
	if t == notificationdomain.TypeInvoicePaid {
		return fmt.Sprintf("Invoice %s for %s has been paid", number, total)
	}
	return fmt.Sprintf("Invoice %s for %s has been sent", number, total)
}

func (s *Service) GetByID(ctx context.Context, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	invoice, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return invoice, nil
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
		filter.Cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, filter.Limit, func(item *domain.Invoice) pagination.Cursor {
		return pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		}
	})

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		invoices = append(invoices, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

// RenderPDF draws the stored invoice. It never recomputes totals.
func (s *Service) RenderPDF(ctx context.Context, tenantID, id snowflake.ID) (domain.Document, error) {
	if s.renderer == nil {
		return domain.Document{}, domain.ErrRendererUnavailable
	}
	invoice, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return domain.Document{}, err
	}
	business, err := s.directory.GetBusiness(ctx, tenantID)
	if err != nil {
		return domain.Document{}, err
	}
	client, err := s.directory.GetClient(ctx, tenantID, invoice.ClientID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return domain.Document{}, err
	}

	body, err := s.renderer.Render(snapshotOf(invoice, business, client))
	if err != nil {
		return domain.Document{}, fmt.Errorf("render invoice %s: %w", invoice.ID, err)
	}
	return domain.Document{
		Filename:    render.Filename(invoice.ID.String()),
		ContentType: render.ContentType,
		Body:        body,
	}, nil
}

func snapshotOf(invoice *domain.Invoice, business *directorydomain.Business, client *directorydomain.Client) render.Snapshot {
	snap := render.Snapshot{
		InvoiceID: invoice.ID.String(),
		Number:    invoice.InvoiceNumber,
		Status:    string(invoice.Status),
		IssuedAt:  invoice.CreatedAt,
		DueAt:     invoice.DueAt,
		Currency:  invoice.Currency,
		Subtotal:  invoice.Subtotal,
		Tax:       invoice.Tax,
		Total:     invoice.Total,
		Items:     make([]render.Item, 0, len(invoice.LineItems)),
		Business: render.Party{
			Name:    business.Name,
			Email:   business.EmailFrom,
			Address: business.Address,
			TaxID:   business.TaxID,
		},
	}
	if client != nil {
		snap.Client = render.Party{Name: client.Name, Email: client.Email}
	}
	for _, item := range invoice.LineItems {
		snap.Items = append(snap.Items, render.Item{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			TaxPercent:  item.TaxPercent,
		})
	}
	return snap
}
