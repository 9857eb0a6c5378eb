package domain

import "time"

// NotificationType keys the client-side icon and color lookup.
type NotificationType string

const (
	NotificationTicketAssigned   NotificationType = "ticket_assigned"
	NotificationTicketStatus     NotificationType = "ticket_status"
	NotificationSLARisk          NotificationType = "sla_risk"
	NotificationSLABreached      NotificationType = "sla_breached"
	NotificationLeadStage        NotificationType = "lead_stage"
	NotificationProposalResponse NotificationType = "proposal_response"
	NotificationMention          NotificationType = "mention"
)

// NotificationPriority orders notifications in the bell menu.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

// Notification is an in-app message for a single agent.
type Notification struct {
	ID        string
	AgentID   string
	Type      NotificationType
	Title     string
	Message   string
	Priority  NotificationPriority
	Link      *string
	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
}
