package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/directory/domain"
	"go.uber.org/zap"
)

type Service struct {
	repo domain.Repository
	log  *zap.Logger
}

func NewService(repo domain.Repository, log *zap.Logger) domain.Service {
	return &Service{
		repo: repo,
		log:  log.Named("directory.service"),
	}
}

func (s *Service) GetBusiness(ctx context.Context, tenantID snowflake.ID) (*domain.Business, error) {
	if tenantID == 0 {
		return nil, domain.ErrBusinessNotFound
	}
	business, err := s.repo.FindBusiness(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, domain.ErrBusinessNotFound
	}
	if business.Currency == "" {
		business.Currency = domain.DefaultCurrency
	}
	if business.BrandColor == "" {
		business.BrandColor = domain.DefaultBrandColor
	}
	return business, nil
}

func (s *Service) GetClient(ctx context.Context, tenantID, clientID snowflake.ID) (*domain.Client, error) {
	if tenantID == 0 || clientID == 0 {
		return nil, domain.ErrClientNotFound
	}
	client, err := s.repo.FindClient(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrClientNotFound
	}
	return client, nil
}

// ResolveRecipient loads the client, its tenant and, when linked, the portal
// user. A dangling user reference is treated like no portal user.
func (s *Service) ResolveRecipient(ctx context.Context, tenantID, clientID snowflake.ID) (domain.Recipient, error) {
	client, err := s.GetClient(ctx, tenantID, clientID)
	if err != nil {
		return domain.Recipient{}, err
	}
	business, err := s.GetBusiness(ctx, tenantID)
	if err != nil {
		return domain.Recipient{}, err
	}

	recipient := domain.Recipient{Business: business, Client: client}
	if client.UserID == nil || *client.UserID == 0 {
		return recipient, nil
	}

	user, err := s.repo.FindUser(ctx, tenantID, *client.UserID)
	if err != nil {
		return domain.Recipient{}, err
	}
	if user == nil {
		s.log.Warn("client portal user missing",
			zap.String("client_id", client.ID.String()),
			zap.String("user_id", client.UserID.String()),
		)
		return recipient, nil
	}
	recipient.PortalUser = user
	return recipient, nil
}
