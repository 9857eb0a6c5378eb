package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/config"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

const defaultNotificationLimit = 50

// NotificationService turns domain events into per-agent notifications and
// serves the bell menu.
type NotificationService struct {
	repo       repository.NotificationRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(repo repository.NotificationRepository, dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketSLARisk, n.handleSLA)
	n.dispatcher.Subscribe(events.EventTicketSLABreached, n.handleSLA)
	n.dispatcher.Subscribe(events.EventLeadStageChanged, n.handleStageChanged)
	n.dispatcher.Subscribe(events.EventReferralStageChanged, n.handleStageChanged)
	n.dispatcher.Subscribe(events.EventProposalResponded, n.handleProposalResponded)
}

// link builds a deep link to a record page.
func (n *NotificationService) link(page, id string) *string {
	base := strings.TrimRight(n.cfg.LinkBaseURL, "/")
	l := fmt.Sprintf("%s/%s?id=%s", base, page, id)
	return &l
}

// notify stores a notification for recipient unless the actor caused it.
func (n *NotificationService) notify(ctx context.Context, event events.Event, recipient *string, note domain.Notification) error {
	if recipient == nil || *recipient == "" {
		return nil
	}
	if event.Actor.AgentID != nil && *event.Actor.AgentID == *recipient {
		return nil
	}
	note.AgentID = *recipient
	if note.Priority == "" {
		note.Priority = domain.NotificationPriorityNormal
	}
	if err := n.repo.Create(ctx, &note); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	n.logger.Debug("notification created",
		zap.String("agent_id", note.AgentID),
		zap.String("type", string(note.Type)),
		zap.String("record_id", event.RecordID))
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	priority := domain.NotificationPriorityNormal
	if p.Priority == domain.TicketPriorityP1 {
		priority = domain.NotificationPriorityHigh
	}
	return n.notify(ctx, event, p.AgentID, domain.Notification{
		Type:     domain.NotificationTicketAssigned,
		Title:    "Novo ticket atribuído",
		Message:  fmt.Sprintf("%s: %s", p.ExternalKey, p.Title),
		Priority: priority,
		Link:     n.link("tickets", event.RecordID),
	})
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	return n.notify(ctx, event, p.AgentID, domain.Notification{
		Type:    domain.NotificationTicketAssigned,
		Title:   "Ticket atribuído a você",
		Message: p.Title,
		Link:    n.link("tickets", event.RecordID),
	})
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	return n.notify(ctx, event, p.AgentID, domain.Notification{
		Type:     domain.NotificationTicketStatus,
		Title:    "Status do ticket alterado",
		Message:  fmt.Sprintf("%s: %s → %s", p.Title, p.OldStatus, p.NewStatus),
		Priority: domain.NotificationPriorityLow,
		Link:     n.link("tickets", event.RecordID),
	})
}

func (n *NotificationService) handleSLA(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketSLAPayload)
	if !ok {
		return nil
	}
	note := domain.Notification{
		Type:     domain.NotificationSLARisk,
		Title:    "SLA em risco",
		Message:  fmt.Sprintf("%s vence em %s", p.Title, p.Deadline.Format(time.RFC3339)),
		Priority: domain.NotificationPriorityHigh,
		Link:     n.link("tickets", event.RecordID),
	}
	if event.Type == events.EventTicketSLABreached {
		note.Type = domain.NotificationSLABreached
		note.Title = "SLA violado"
		note.Message = fmt.Sprintf("%s venceu em %s", p.Title, p.Deadline.Format(time.RFC3339))
	}
	return n.notify(ctx, event, p.AgentID, note)
}

func (n *NotificationService) handleStageChanged(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.StageChangedPayload)
	if !ok {
		return nil
	}
	page := "leads"
	if event.RecordType == domain.RecordReferral {
		page = "referrals"
	}
	priority := domain.NotificationPriorityNormal
	if p.ToStage.IsClosed() {
		priority = domain.NotificationPriorityHigh
	}
	return n.notify(ctx, event, p.AgentID, domain.Notification{
		Type:     domain.NotificationLeadStage,
		Title:    "Etapa alterada",
		Message:  fmt.Sprintf("%s: %s → %s", p.Name, p.FromStage, p.ToStage),
		Priority: priority,
		Link:     n.link(page, event.RecordID),
	})
}

func (n *NotificationService) handleProposalResponded(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.ProposalRespondedPayload)
	if !ok {
		return nil
	}
	title := "Proposta aceita"
	if p.Status == domain.ProposalRejected {
		title = "Proposta recusada"
	}
	return n.notify(ctx, event, &p.CreatedBy, domain.Notification{
		Type:     domain.NotificationProposalResponse,
		Title:    title,
		Message:  p.Title,
		Priority: domain.NotificationPriorityHigh,
		Link:     n.link("leads", event.RecordID),
	})
}

func (n *NotificationService) limit() int {
	if n.cfg.ListLimit > 0 {
		return n.cfg.ListLimit
	}
	return defaultNotificationLimit
}

// List returns the agent's latest notifications.
func (n *NotificationService) List(ctx context.Context, agent *domain.Agent, unreadOnly bool) ([]domain.Notification, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	items, err := n.repo.ListByAgent(ctx, agent.ID, unreadOnly, n.limit())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// UnreadCount backs the polled bell badge.
func (n *NotificationService) UnreadCount(ctx context.Context, agent *domain.Agent) (int, error) {
	if err := requireAgent(agent); err != nil {
		return 0, err
	}
	count, err := n.repo.CountUnread(ctx, agent.ID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// MarkRead flags one of the agent's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, agent *domain.Agent, id string) (*domain.Notification, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	note, err := n.repo.MarkRead(ctx, agent.ID, id, n.now().UTC())
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "notification", id)
	}
	return note, nil
}

// MarkAllRead clears the agent's unread notifications.
func (n *NotificationService) MarkAllRead(ctx context.Context, agent *domain.Agent) (int64, error) {
	if err := requireAgent(agent); err != nil {
		return 0, err
	}
	count, err := n.repo.MarkAllRead(ctx, agent.ID, n.now().UTC())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}
