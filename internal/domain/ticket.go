package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "novo"
	TicketStatusAssigned        TicketStatus = "atribuido"
	TicketStatusInProgress      TicketStatus = "em_atendimento"
	TicketStatusWaitingCustomer TicketStatus = "aguardando_cliente"
	TicketStatusResolved        TicketStatus = "resolvido"
	TicketStatusClosed          TicketStatus = "fechado"
)

// ActiveBoardStatuses are the columns of the live ticket board, in order.
var ActiveBoardStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusWaitingCustomer,
}

// ParseTicketStatus normalizes aliases ("resolved", "closed") and rejects unknown values.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "novo":
		return TicketStatusNew, true
	case "atribuido":
		return TicketStatusAssigned, true
	case "em_atendimento":
		return TicketStatusInProgress, true
	case "aguardando_cliente":
		return TicketStatusWaitingCustomer, true
	case "resolvido", "resolved":
		return TicketStatusResolved, true
	case "fechado", "closed":
		return TicketStatusClosed, true
	}
	return "", false
}

// IsTerminal reports whether the status ends the ticket lifecycle.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityP1 TicketPriority = "P1"
	TicketPriorityP2 TicketPriority = "P2"
	TicketPriorityP3 TicketPriority = "P3"
	TicketPriorityP4 TicketPriority = "P4"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityP1, TicketPriorityP2, TicketPriorityP3, TicketPriorityP4:
		return true
	}
	return false
}

// TicketType routes a ticket to a business area.
type TicketType string

const (
	TicketTypeSupport    TicketType = "support"
	TicketTypeSales      TicketType = "sales"
	TicketTypeCollection TicketType = "collection"
)

// Valid reports whether t is a known ticket type.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeSupport, TicketTypeSales, TicketTypeCollection:
		return true
	}
	return false
}

// TicketSource records where a ticket was opened.
type TicketSource string

const (
	TicketSourceForm     TicketSource = "form"
	TicketSourceAIAgent  TicketSource = "ai_agent"
	TicketSourceWhatsApp TicketSource = "whatsapp"
	TicketSourcePortal   TicketSource = "portal"
)

// Ticket is the aggregate for support, sales and collection requests.
type Ticket struct {
	ID                    string
	ExternalKey           string
	Title                 string
	Description           string
	Status                TicketStatus
	Priority              TicketPriority
	TicketType            TicketType
	Source                TicketSource
	QueueID               *string
	AgentID               *string
	TeamID                *string
	ContactID             *string
	SLAResolutionDeadline *time.Time
	SLABreached           bool
	ResolvedAt            *time.Time
	ClosedAt              *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
