// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/agencyflow/internal/money"
	"github.com/smallbiznis/agencyflow/internal/statemachine"
)

// Status represents invoice lifecycle states.
type Status string

const (
	StatusDraft Status = "DRAFT"
	StatusSent  Status = "SENT"
	StatusPaid  Status = "PAID"
)

// Lifecycle lists the forward moves an invoice may make in strict mode.
var Lifecycle = statemachine.New("invoice",
	[]Status{StatusDraft, StatusSent, StatusPaid},
	map[Status][]Status{
		StatusDraft: {StatusSent, StatusPaid},
		StatusSent:  {StatusPaid},
	},
)

// Invoice totals are computed once at creation and are authoritative after
// that; nothing re-derives them from the line items.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_invoices_tenant_number,priority:1" json:"tenant_id"`
	ClientID      snowflake.ID    `gorm:"not null;index" json:"client_id"`
	InvoiceNumber string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoices_tenant_number,priority:2" json:"invoice_number"`
	Currency      string          `gorm:"type:varchar(3);not null" json:"currency"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"subtotal"`
	Tax           decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"tax"`
	Total         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total"`
	Status        Status          `gorm:"type:varchar(16);not null;default:'DRAFT'" json:"status"`
	DueAt         *time.Time      `json:"due_at,omitempty"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	LineItems     []LineItem      `gorm:"foreignKey:InvoiceID" json:"line_items"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// LineItem is one billable row. Position keeps display order.
type LineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	TaxPercent  decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"tax_percent"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "invoice_line_items" }

// Money returns the arithmetic view of the row.
func (l LineItem) Money() money.LineItem {
	return money.LineItem{Quantity: l.Quantity, Rate: l.Rate, TaxPercent: l.TaxPercent}
}

// MoneyItems converts rows for money.Compute.
func MoneyItems(items []LineItem) []money.LineItem {
	out := make([]money.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.Money())
	}
	return out
}
