package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/statemachine"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDelivered  Status = "DELIVERED"
)

var Lifecycle = statemachine.New("project",
	[]Status{StatusPending, StatusInProgress, StatusDelivered},
	map[Status][]Status{
		StatusPending:    {StatusInProgress, StatusDelivered},
		StatusInProgress: {StatusDelivered},
	},
)

type Project struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	ClientID    snowflake.ID `gorm:"not null;index" json:"client_id"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      Status       `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// StatusUpdatedPayload is published on the project channel.
type StatusUpdatedPayload struct {
	ProjectID      string    `json:"project_id"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previous_status"`
	UpdatedAt      time.Time `json:"updated_at"`
}
