package dto

import (
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority" validate:"omitempty,oneof=P1 P2 P3 P4"`
	TicketType  domain.TicketType     `json:"ticket_type" validate:"omitempty,oneof=support sales collection"`
	Source      domain.TicketSource   `json:"source" validate:"omitempty,oneof=form ai_agent whatsapp portal"`
	QueueID     *string               `json:"queue_id" validate:"omitempty,uuid"`
	AgentID     *string               `json:"agent_id" validate:"omitempty,uuid"`
	ContactID   *string               `json:"contact_id" validate:"omitempty,uuid"`
	SLADeadline *time.Time            `json:"sla_deadline"`
}

// StatusRequest moves a ticket to a status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AssignRequest sets or clears the assignee.
type AssignRequest struct {
	AgentID *string `json:"agent_id" validate:"omitempty,uuid"`
}

// AssignToMeRequest bulk-claims tickets.
type AssignToMeRequest struct {
	TicketIDs []string `json:"ticket_ids" validate:"required,min=1,dive,required"`
}

// DropRequest is a board drag-and-drop result.
type DropRequest struct {
	DraggableID   string `json:"draggable_id"`
	DestinationID string `json:"destination_droppable_id" validate:"required"`
	SourceID      string `json:"source_droppable_id"`
}

// TicketResponse is the ticket view.
type TicketResponse struct {
	ID                    string                `json:"id"`
	ExternalKey           string                `json:"external_key"`
	Title                 string                `json:"title"`
	Description           string                `json:"description"`
	Status                domain.TicketStatus   `json:"status"`
	Priority              domain.TicketPriority `json:"priority"`
	TicketType            domain.TicketType     `json:"ticket_type"`
	Source                domain.TicketSource   `json:"source"`
	QueueID               *string               `json:"queue_id"`
	AgentID               *string               `json:"agent_id"`
	TeamID                *string               `json:"team_id"`
	ContactID             *string               `json:"contact_id"`
	SLAResolutionDeadline *time.Time            `json:"sla_resolution_deadline"`
	SLABreached           bool                  `json:"sla_breached"`
	ResolvedAt            *time.Time            `json:"resolved_at"`
	ClosedAt              *time.Time            `json:"closed_at"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// TicketColumn is one board column.
type TicketColumn struct {
	Key   string           `json:"key"`
	Count int              `json:"count"`
	Items []TicketResponse `json:"items"`
}

// TicketBoardResponse is the status board.
type TicketBoardResponse struct {
	Columns []TicketColumn              `json:"columns"`
	Counts  map[domain.TicketStatus]int `json:"counts"`
}

// QueueBoardResponse is the queue board.
type QueueBoardResponse struct {
	Columns []TicketColumn  `json:"columns"`
	Queues  []QueueResponse `json:"queues"`
}

// BulkResultResponse reports a bulk assignment.
type BulkResultResponse struct {
	Updated []TicketResponse  `json:"updated"`
	Failed  map[string]string `json:"failed"`
}

// QueueCreateRequest payload.
type QueueCreateRequest struct {
	Name       string            `json:"name" validate:"required,max=80"`
	TicketType domain.TicketType `json:"ticket_type"`
	TeamID     *string           `json:"team_id"`
}

// QueueResponse is the queue view.
type QueueResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	TicketType domain.TicketType `json:"ticket_type"`
	TeamID     *string           `json:"team_id"`
	Active     bool              `json:"active"`
}
