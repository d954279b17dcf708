// Package domain contains the tenant, portal user and client records the
// lifecycle managers read to address notifications and email.
package domain

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/errs"
)

const (
	DefaultCurrency   = "USD"
	DefaultBrandColor = "#4f46e5"
)

// Business is the tenant. Its ID is the tenant_id of every other row.
type Business struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	Currency   string       `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	BrandColor string       `gorm:"type:varchar(16);not null;default:'#4f46e5'" json:"brand_color"`
	EmailFrom  string       `gorm:"type:text" json:"email_from,omitempty"`
	Address    string       `gorm:"type:text" json:"address,omitempty"`
	TaxID      string       `gorm:"type:text" json:"tax_id,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Business) TableName() string { return "businesses" }

type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Email     string       `gorm:"type:text;not null" json:"email"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Client is a customer of the tenant. UserID links the optional portal login;
// nil means the client has no self-service access.
type Client struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID  `gorm:"not null;index" json:"tenant_id"`
	Name      string        `gorm:"type:text;not null" json:"name"`
	Email     string        `gorm:"type:text" json:"email,omitempty"`
	UserID    *snowflake.ID `gorm:"index" json:"user_id,omitempty"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

// Recipient is the resolved addressing for client-facing fan-out.
type Recipient struct {
	Business   *Business
	Client     *Client
	PortalUser *User
}

func (r Recipient) HasPortalUser() bool {
	return r.PortalUser != nil
}

// Email prefers the portal login address and falls back to the client's.
func (r Recipient) Email() string {
	if r.PortalUser != nil && strings.TrimSpace(r.PortalUser.Email) != "" {
		return strings.TrimSpace(r.PortalUser.Email)
	}
	if r.Client != nil {
		return strings.TrimSpace(r.Client.Email)
	}
	return ""
}

type Repository interface {
	FindBusiness(ctx context.Context, tenantID snowflake.ID) (*Business, error)
	FindClient(ctx context.Context, tenantID, clientID snowflake.ID) (*Client, error)
	FindUser(ctx context.Context, tenantID, userID snowflake.ID) (*User, error)
}

type Service interface {
	GetBusiness(ctx context.Context, tenantID snowflake.ID) (*Business, error)
	GetClient(ctx context.Context, tenantID, clientID snowflake.ID) (*Client, error)
	ResolveRecipient(ctx context.Context, tenantID, clientID snowflake.ID) (Recipient, error)
}

var (
	ErrBusinessNotFound = errs.Wrap(errs.ErrNotFound, "business_not_found")
	ErrClientNotFound   = errs.Wrap(errs.ErrNotFound, "client_not_found")
)
