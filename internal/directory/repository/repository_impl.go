package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/directory/domain"
	"github.com/smallbiznis/agencyflow/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	businesses repository.Repository[domain.Business]
	clients    repository.Repository[domain.Client]
	users      repository.Repository[domain.User]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{
		businesses: repository.ProvideRootStore[domain.Business](db),
		clients:    repository.ProvideStore[domain.Client](db),
		users:      repository.ProvideStore[domain.User](db),
	}
}

func (r *repo) FindBusiness(ctx context.Context, tenantID snowflake.ID) (*domain.Business, error) {
	return r.businesses.FindByID(ctx, tenantID, tenantID)
}

func (r *repo) FindClient(ctx context.Context, tenantID, clientID snowflake.ID) (*domain.Client, error) {
	return r.clients.FindByID(ctx, tenantID, clientID)
}

func (r *repo) FindUser(ctx context.Context, tenantID, userID snowflake.ID) (*domain.User, error) {
	return r.users.FindByID(ctx, tenantID, userID)
}
