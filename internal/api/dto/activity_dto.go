package dto

import (
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
)

// ActivityCreateRequest payload.
type ActivityCreateRequest struct {
	Type         domain.ActivityType `json:"type" validate:"required"`
	Subject      string              `json:"subject" validate:"required,max=200"`
	Description  string              `json:"description"`
	RecordType   domain.RecordType   `json:"record_type" validate:"required,oneof=ticket lead referral"`
	RecordID     string              `json:"record_id" validate:"required,uuid"`
	ScheduledFor *time.Time          `json:"scheduled_for"`
}

// ActivityResponse is a timeline entry or task.
type ActivityResponse struct {
	ID           string              `json:"id"`
	Type         domain.ActivityType `json:"type"`
	Subject      string              `json:"subject"`
	Description  string              `json:"description"`
	RecordType   domain.RecordType   `json:"record_type"`
	RecordID     string              `json:"record_id"`
	AgentID      string              `json:"agent_id"`
	Completed    bool                `json:"completed"`
	CompletedAt  *time.Time          `json:"completed_at"`
	ScheduledFor *time.Time          `json:"scheduled_for"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NotificationResponse is a bell-menu entry.
type NotificationResponse struct {
	ID        string                      `json:"id"`
	Type      domain.NotificationType     `json:"type"`
	Title     string                      `json:"title"`
	Message   string                      `json:"message"`
	Priority  domain.NotificationPriority `json:"priority"`
	Link      *string                     `json:"link"`
	Read      bool                        `json:"read"`
	ReadAt    *time.Time                  `json:"read_at"`
	CreatedAt time.Time                   `json:"created_at"`
}
