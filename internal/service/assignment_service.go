package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/pipeline"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// AssignmentService hands tickets to agents and moves them between queues.
type AssignmentService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	queues     repository.QueueRepository
	statuses   *TicketService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo    repository.TicketRepository
	AgentRepo     repository.AgentRepository
	QueueRepo     repository.QueueRepository
	TicketService *TicketService
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// BulkResult reports a bulk operation per ticket.
type BulkResult struct {
	Updated []domain.Ticket
	Failed  map[string]string
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		queues:     deps.QueueRepo,
		statuses:   deps.TicketService,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// canAssignOthers is true when the actor sees beyond their own tickets.
func canAssignOthers(actor *domain.Agent) bool {
	return permissions.VisibilityScope(actor, permissions.ResourceTickets) >= permissions.ScopeTeam
}

// Assign gives a ticket to assigneeID, or unassigns it when assigneeID is
// nil. A new ticket becomes atribuido once it has an owner.
func (s *AssignmentService) Assign(ctx context.Context, actor *domain.Agent, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	if err := requireAgent(actor); err != nil {
		return nil, err
	}
	assigneeID = trimmed(assigneeID)
	var assignee *domain.Agent
	if assigneeID != nil {
		a, err := resolveAssignee(ctx, s.agents, actor, *assigneeID)
		if err != nil {
			return nil, err
		}
		assignee = a
	}

	var previous *string
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if !canSeeTicket(actor, t) {
			return apperrors.NewForbidden("access denied")
		}
		previous = t.AgentID
		if assignee == nil {
			if t.AgentID == nil {
				return errUnchanged
			}
			t.AgentID = nil
			return nil
		}
		if t.AgentID != nil && *t.AgentID == assignee.ID {
			return errUnchanged
		}
		t.AgentID = ptr(assignee.ID)
		if t.TeamID == nil {
			t.TeamID = assignee.TeamID
		}
		if t.Status == domain.TicketStatusNew {
			pipeline.ApplyTicketStatus(t, domain.TicketStatusAssigned, s.now())
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return s.statuses.reload(ctx, ticketID)
	}
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", ticketID)
	}
	s.publishAssigned(ctx, actor.ID, ticket, previous)
	return ticket, nil
}

// AssignToMe takes every listed ticket the actor may see or that nobody owns
// yet, within the ticket types the actor's modules cover. Each ticket is
// locked and updated on its own; failures are reported per id instead of
// failing the batch. A resolved or closed ticket taken this way reopens and
// gets fresh SLA timers.
func (s *AssignmentService) AssignToMe(ctx context.Context, actor *domain.Agent, ticketIDs []string) (*BulkResult, error) {
	if err := requireAgent(actor); err != nil {
		return nil, err
	}
	if len(ticketIDs) == 0 {
		return nil, apperrors.NewValidationError("ticket_ids is required", nil)
	}
	result := &BulkResult{Updated: []domain.Ticket{}, Failed: map[string]string{}}
	seen := make(map[string]struct{}, len(ticketIDs))
	for _, id := range ticketIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var previous *string
		var reopened bool
		ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
			if !permissions.CanAccessTicketType(actor, t.TicketType) {
				return apperrors.NewForbidden("access denied")
			}
			if t.AgentID != nil && !canSeeTicket(actor, t) {
				return apperrors.NewForbidden("access denied")
			}
			previous = t.AgentID
			change := pipeline.AssignToMe(t, actor.ID, s.now())
			reopened = change.From.IsTerminal() && !change.To.IsTerminal()
			if t.TeamID == nil {
				t.TeamID = actor.TeamID
			}
			return nil
		})
		if err != nil {
			result.Failed[id] = apperrors.NotFoundOr(err, "ticket", id).Error()
			continue
		}
		if reopened {
			s.statuses.scheduleSLA(ctx, ticket)
		}
		result.Updated = append(result.Updated, *ticket)
		s.publishAssigned(ctx, actor.ID, ticket, previous)
	}
	s.logger.Info("bulk assign to me",
		zap.String("agent_id", actor.ID),
		zap.Int("updated", len(result.Updated)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

// Move applies a board drop. A destination naming a ticket status changes the
// status; anything else is a queue id, or pipeline.Unqueued to clear the queue.
func (s *AssignmentService) Move(ctx context.Context, actor *domain.Agent, ticketID string, drop pipeline.DropEvent) (*domain.Ticket, error) {
	if err := requireAgent(actor); err != nil {
		return nil, err
	}
	if drop.DraggableID == "" {
		drop.DraggableID = ticketID
	}
	if drop.DraggableID != ticketID {
		return nil, apperrors.NewValidationError("draggable_id does not match ticket", map[string]any{"draggable_id": drop.DraggableID})
	}
	if drop.DestinationID == "" {
		return nil, apperrors.NewValidationError("destination_droppable_id is required", nil)
	}
	if !drop.Moved() {
		return s.statuses.Get(ctx, actor, ticketID)
	}
	if _, ok := domain.ParseTicketStatus(drop.DestinationID); ok {
		return s.statuses.UpdateStatus(ctx, actor, ticketID, drop.DestinationID)
	}

	var queue *domain.Queue
	if drop.DestinationID != pipeline.Unqueued {
		q, err := s.queues.GetByID(ctx, drop.DestinationID)
		if err != nil {
			return nil, apperrors.NotFoundOr(err, "queue", drop.DestinationID)
		}
		if !q.Active {
			return nil, apperrors.NewConflict("queue inactive", map[string]any{"queue_id": q.ID})
		}
		if !permissions.CanAccessTicketType(actor, q.TicketType) {
			return nil, apperrors.NewAccessRestricted(string(q.TicketType))
		}
		queue = q
	}

	var from *string
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if !canSeeTicket(actor, t) {
			return apperrors.NewForbidden("access denied")
		}
		from = t.QueueID
		if queue == nil {
			if t.QueueID == nil {
				return errUnchanged
			}
			t.QueueID = nil
			return nil
		}
		if t.QueueID != nil && *t.QueueID == queue.ID {
			return errUnchanged
		}
		t.QueueID = ptr(queue.ID)
		if queue.TeamID != nil {
			t.TeamID = queue.TeamID
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return s.statuses.reload(ctx, ticketID)
	}
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", ticketID)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventTicketMoved,
		RecordType: domain.RecordTicket,
		RecordID:   ticket.ID,
		Actor:      agentActor(actor.ID),
		Payload:    events.TicketMovedPayload{FromQueueID: from, ToQueueID: ticket.QueueID},
	})
	return ticket, nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, actorID string, ticket *domain.Ticket, previous *string) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventTicketAssigned,
		RecordType: domain.RecordTicket,
		RecordID:   ticket.ID,
		Actor:      agentActor(actorID),
		Payload: events.TicketAssignedPayload{
			PreviousAgentID: previous,
			AgentID:         ticket.AgentID,
			TeamID:          ticket.TeamID,
			Title:           ticket.Title,
		},
	})
	s.logger.Info("ticket assigned", zap.String("ticket_id", ticket.ID), zap.String("by", actorID))
}
