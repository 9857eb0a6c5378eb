package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/export"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/pipeline"
	"github.com/crmdesk/crm-service/internal/repository"
	"github.com/crmdesk/crm-service/internal/worker"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// slaTargets is the default resolution window per priority, used when a
// ticket is opened without an explicit deadline.
var slaTargets = map[domain.TicketPriority]time.Duration{
	domain.TicketPriorityP1: 4 * time.Hour,
	domain.TicketPriorityP2: 8 * time.Hour,
	domain.TicketPriorityP3: 24 * time.Hour,
	domain.TicketPriorityP4: 72 * time.Hour,
}

// errUnchanged aborts a Mutate whose transition turned out to be a no-op.
var errUnchanged = errors.New("unchanged")

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	queues     repository.QueueRepository
	agents     repository.AgentRepository
	scheduler  worker.Scheduler
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	QueueRepo  repository.QueueRepository
	AgentRepo  repository.AgentRepository
	Scheduler  worker.Scheduler
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	TicketType  domain.TicketType
	Source      domain.TicketSource
	QueueID     *string
	AgentID     *string
	ContactID   *string
	SLADeadline *time.Time
}

// TicketListFilters describes agent listing filters.
type TicketListFilters struct {
	QueueID     *string
	AgentID     *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Types       []domain.TicketType
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketBoard is the live ticket board.
type TicketBoard struct {
	Columns []pipeline.Column[domain.Ticket]
	Counts  map[domain.TicketStatus]int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		queues:     deps.QueueRepo,
		agents:     deps.AgentRepo,
		scheduler:  deps.Scheduler,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

func generateTicketKey(now time.Time) string {
	return "TK-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// visibleTypes narrows requested to the ticket types the agent's modules
// cover, or lists all of them when nothing was requested.
func visibleTypes(agent *domain.Agent, requested []domain.TicketType) []domain.TicketType {
	if len(requested) == 0 {
		return permissions.TicketTypes(agent)
	}
	var out []domain.TicketType
	for _, tt := range requested {
		if permissions.CanAccessTicketType(agent, tt) {
			out = append(out, tt)
		}
	}
	return out
}

func (s *TicketService) filter(agent *domain.Agent, f TicketListFilters, types []domain.TicketType) (repository.TicketFilter, error) {
	owner, err := ownerFilter(agent, permissions.ResourceTickets)
	if err != nil {
		return repository.TicketFilter{}, err
	}
	return repository.TicketFilter{
		Owner:       owner,
		QueueID:     f.QueueID,
		AgentID:     f.AgentID,
		Statuses:    f.Statuses,
		Priorities:  f.Priorities,
		Types:       types,
		SearchTerm:  trimmed(f.SearchTerm),
		CreatedFrom: f.CreatedFrom,
		CreatedTo:   f.CreatedTo,
		Limit:       f.Limit,
		Offset:      f.Offset,
	}, nil
}

// List returns the tickets visible to the agent.
func (s *TicketService) List(ctx context.Context, agent *domain.Agent, f TicketListFilters) ([]domain.Ticket, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	types := visibleTypes(agent, f.Types)
	if len(types) == 0 {
		return []domain.Ticket{}, nil
	}
	filter, err := s.filter(agent, f, types)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// canSeeTicket needs both the module that owns the ticket type and a
// visibility scope covering the ticket's owner.
func canSeeTicket(agent *domain.Agent, t *domain.Ticket) bool {
	return permissions.CanAccessTicketType(agent, t.TicketType) &&
		permissions.CanSeeRecord(agent, permissions.ResourceTickets, t.AgentID, t.TeamID)
}

// Get loads one ticket the agent is allowed to see.
func (s *TicketService) Get(ctx context.Context, agent *domain.Agent, id string) (*domain.Ticket, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", id)
	}
	if !canSeeTicket(agent, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

func (s *TicketService) reload(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", id)
	}
	return ticket, nil
}

// Create opens a ticket on behalf of an agent.
func (s *TicketService) Create(ctx context.Context, agent *domain.Agent, in TicketCreateInput) (*domain.Ticket, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	if in.Source == "" {
		in.Source = domain.TicketSourceForm
	}
	if in.TicketType == "" {
		in.TicketType = domain.TicketTypeSupport
		if types := permissions.TicketTypes(agent); len(types) > 0 {
			in.TicketType = types[0]
		}
	}
	if in.TicketType.Valid() && !permissions.CanAccessTicketType(agent, in.TicketType) {
		return nil, apperrors.NewAccessRestricted(string(in.TicketType))
	}
	if assigneeID := trimmed(in.AgentID); assigneeID != nil {
		assignee, err := resolveAssignee(ctx, s.agents, agent, *assigneeID)
		if err != nil {
			return nil, err
		}
		in.AgentID = &assignee.ID
	}
	return s.Open(ctx, in, agentActor(agent.ID))
}

// resolveAssignee loads an active agent the actor may hand tickets to.
func resolveAssignee(ctx context.Context, agents repository.AgentRepository, actor *domain.Agent, assigneeID string) (*domain.Agent, error) {
	if assigneeID != actor.ID && !canAssignOthers(actor) {
		return nil, apperrors.NewForbidden("cannot assign tickets to other agents")
	}
	assignee, err := agents.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "agent", assigneeID)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"agent_id": assignee.ID})
	}
	return assignee, nil
}

// Open validates and stores a new ticket from any channel, arms its SLA
// timers and announces it.
func (s *TicketService) Open(ctx context.Context, in TicketCreateInput, actor events.Actor) (*domain.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if in.Priority == "" {
		in.Priority = domain.TicketPriorityP3
	}
	if !in.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": in.Priority})
	}
	if in.TicketType == "" {
		in.TicketType = domain.TicketTypeSupport
	}
	if !in.TicketType.Valid() {
		return nil, apperrors.NewValidationError("invalid ticket_type", map[string]any{"ticket_type": in.TicketType})
	}

	now := s.now().UTC()
	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(now),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      domain.TicketStatusNew,
		Priority:    in.Priority,
		TicketType:  in.TicketType,
		Source:      in.Source,
		AgentID:     trimmed(in.AgentID),
		ContactID:   trimmed(in.ContactID),
	}
	if ticket.AgentID != nil {
		ticket.Status = domain.TicketStatusAssigned
	}
	if queueID := trimmed(in.QueueID); queueID != nil {
		queue, err := s.queues.GetByID(ctx, *queueID)
		if err != nil {
			return nil, apperrors.NotFoundOr(err, "queue", *queueID)
		}
		if !queue.Active {
			return nil, apperrors.NewConflict("queue inactive", map[string]any{"queue_id": queue.ID})
		}
		ticket.QueueID = &queue.ID
		ticket.TeamID = queue.TeamID
	}
	deadline := now.Add(slaTargets[ticket.Priority])
	if in.SLADeadline != nil {
		deadline = in.SLADeadline.UTC()
	}
	// Postgres keeps microseconds; SLA timers carry the stored value.
	deadline = deadline.Truncate(time.Microsecond)
	ticket.SLAResolutionDeadline = &deadline

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.scheduleSLA(ctx, ticket)
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventTicketCreated,
		RecordType: domain.RecordTicket,
		RecordID:   ticket.ID,
		Actor:      actor,
		Payload: events.TicketCreatedPayload{
			ExternalKey: ticket.ExternalKey,
			Title:       ticket.Title,
			Priority:    ticket.Priority,
			TicketType:  ticket.TicketType,
			Source:      ticket.Source,
			QueueID:     ticket.QueueID,
			AgentID:     ticket.AgentID,
		},
	})
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("external_key", ticket.ExternalKey),
		zap.String("source", string(ticket.Source)))
	return ticket, nil
}

func (s *TicketService) scheduleSLA(ctx context.Context, ticket *domain.Ticket) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleSLA(ctx, ticket); err != nil {
		s.logger.Warn("sla scheduling failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

// UpdateStatus moves a ticket to the status named raw. Any status may follow
// any other; setting the current status again changes nothing.
func (s *TicketService) UpdateStatus(ctx context.Context, agent *domain.Agent, id, raw string) (*domain.Ticket, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	to, ok := domain.ParseTicketStatus(raw)
	if !ok {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
	}

	var change pipeline.StatusChange
	ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		if !canSeeTicket(agent, t) {
			return apperrors.NewForbidden("access denied")
		}
		var moved bool
		change, moved = pipeline.ApplyTicketStatus(t, to, s.now())
		if !moved {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return s.reload(ctx, id)
	}
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", id)
	}

	if change.From.IsTerminal() && !change.To.IsTerminal() {
		s.scheduleSLA(ctx, ticket)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventTicketStatusChanged,
		RecordType: domain.RecordTicket,
		RecordID:   ticket.ID,
		Actor:      agentActor(agent.ID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: change.From,
			NewStatus: change.To,
			AgentID:   ticket.AgentID,
			Title:     ticket.Title,
		},
	})
	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
		zap.String("agent_id", agent.ID))
	return ticket, nil
}

// Board groups the agent's active tickets by status.
func (s *TicketService) Board(ctx context.Context, agent *domain.Agent, f TicketListFilters) (*TicketBoard, error) {
	f.Statuses = domain.ActiveBoardStatuses
	f.Limit, f.Offset = boardLimit, 0
	tickets, err := s.List(ctx, agent, f)
	if err != nil {
		return nil, err
	}
	return &TicketBoard{
		Columns: pipeline.GroupTicketsByStatus(tickets),
		Counts:  pipeline.BoardCounts(tickets),
	}, nil
}

// QueueBoard groups the agent's open tickets by queue. ticketType narrows
// both the queues and the tickets when set.
func (s *TicketService) QueueBoard(ctx context.Context, agent *domain.Agent, ticketType *domain.TicketType) ([]pipeline.Column[domain.Ticket], []domain.Queue, error) {
	queues, err := s.queues.List(ctx, true)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	f := TicketListFilters{Statuses: domain.ActiveBoardStatuses, Limit: boardLimit}
	if ticketType != nil {
		f.Types = []domain.TicketType{*ticketType}
	}
	filtered := queues[:0]
	for _, q := range queues {
		if ticketType != nil && q.TicketType != *ticketType {
			continue
		}
		if permissions.CanAccessTicketType(agent, q.TicketType) {
			filtered = append(filtered, q)
		}
	}
	queues = filtered
	tickets, err := s.List(ctx, agent, f)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.GroupTicketsByQueue(queues, tickets), queues, nil
}

// Export writes the agent's tickets as CSV.
func (s *TicketService) Export(ctx context.Context, agent *domain.Agent, f TicketListFilters, w io.Writer) error {
	f.Limit, f.Offset = boardLimit, 0
	tickets, err := s.List(ctx, agent, f)
	if err != nil {
		return err
	}
	if err := export.WriteTickets(w, tickets); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
