package events

import (
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketMoved           EventType = "ticket_moved"
	EventTicketSLARisk         EventType = "ticket_sla_risk"
	EventTicketSLABreached     EventType = "ticket_sla_breached"
	EventLeadStageChanged      EventType = "lead_stage_changed"
	EventReferralStageChanged  EventType = "referral_stage_changed"
	EventProposalResponded     EventType = "proposal_responded"
	EventActivityTaskScheduled EventType = "activity_task_scheduled"
)

// AllEventTypes lists every event the service emits.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketMoved,
	EventTicketSLARisk,
	EventTicketSLABreached,
	EventLeadStageChanged,
	EventReferralStageChanged,
	EventProposalResponded,
	EventActivityTaskScheduled,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type      domain.SubjectType `json:"type"`
	AgentID   *string            `json:"agent_id,omitempty"`
	ContactID *string            `json:"contact_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	RecordType domain.RecordType `json:"record_type"`
	RecordID   string            `json:"record_id"`
	Actor      Actor             `json:"actor"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    interface{}       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ExternalKey string                `json:"external_key"`
	Title       string                `json:"title"`
	Priority    domain.TicketPriority `json:"priority"`
	TicketType  domain.TicketType     `json:"ticket_type"`
	Source      domain.TicketSource   `json:"source"`
	QueueID     *string               `json:"queue_id,omitempty"`
	AgentID     *string               `json:"agent_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	AgentID   *string             `json:"agent_id,omitempty"`
	Title     string              `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAgentID *string `json:"previous_agent_id,omitempty"`
	AgentID         *string `json:"agent_id,omitempty"`
	TeamID          *string `json:"team_id,omitempty"`
	Title           string  `json:"title"`
}

// TicketMovedPayload payload.
type TicketMovedPayload struct {
	FromQueueID *string `json:"from_queue_id,omitempty"`
	ToQueueID   *string `json:"to_queue_id,omitempty"`
}

// TicketSLAPayload is shared by the risk and breach events.
type TicketSLAPayload struct {
	AgentID  *string   `json:"agent_id,omitempty"`
	Title    string    `json:"title"`
	Deadline time.Time `json:"deadline"`
}

// StageChangedPayload is shared by lead and referral stage events.
type StageChangedPayload struct {
	Name      string       `json:"name"`
	FromStage domain.Stage `json:"from_stage"`
	ToStage   domain.Stage `json:"to_stage"`
	AgentID   *string      `json:"agent_id,omitempty"`
}

// ProposalRespondedPayload payload.
type ProposalRespondedPayload struct {
	ProposalID string                `json:"proposal_id"`
	Title      string                `json:"title"`
	Status     domain.ProposalStatus `json:"status"`
	CreatedBy  string                `json:"created_by"`
}

// TaskScheduledPayload payload.
type TaskScheduledPayload struct {
	ActivityID   string    `json:"activity_id"`
	AgentID      string    `json:"agent_id"`
	Subject      string    `json:"subject"`
	ScheduledFor time.Time `json:"scheduled_for"`
}
