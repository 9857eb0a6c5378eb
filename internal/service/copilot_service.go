package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/assistant"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// TicketAssistant is the AI backend of the copilot.
type TicketAssistant interface {
	SummarizeTicket(ctx context.Context, ticket *domain.Ticket, timeline []domain.Activity) (*assistant.Summary, error)
	SuggestReplies(ctx context.Context, ticket *domain.Ticket, timeline []domain.Activity) (*assistant.Replies, error)
	ClassifyTicket(ctx context.Context, ticket *domain.Ticket) (*assistant.Classification, error)
}

// CopilotService feeds visible tickets and their timelines to the assistant.
type CopilotService struct {
	tickets    *TicketService
	activities repository.ActivityRepository
	assistant  TicketAssistant
	logger     *zap.Logger
}

// NewCopilotService constructs the service.
func NewCopilotService(tickets *TicketService, activities repository.ActivityRepository, ai TicketAssistant, logger *zap.Logger) *CopilotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CopilotService{tickets: tickets, activities: activities, assistant: ai, logger: logger}
}

func (s *CopilotService) load(ctx context.Context, agent *domain.Agent, ticketID string) (*domain.Ticket, []domain.Activity, error) {
	ticket, err := s.tickets.Get(ctx, agent, ticketID)
	if err != nil {
		return nil, nil, err
	}
	timeline, err := s.activities.ListByRecord(ctx, domain.RecordTicket, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, timeline, nil
}

// Summarize condenses a ticket and its timeline.
func (s *CopilotService) Summarize(ctx context.Context, agent *domain.Agent, ticketID string) (*assistant.Summary, error) {
	ticket, timeline, err := s.load(ctx, agent, ticketID)
	if err != nil {
		return nil, err
	}
	return s.assistant.SummarizeTicket(ctx, ticket, timeline)
}

// Replies drafts answers to the customer.
func (s *CopilotService) Replies(ctx context.Context, agent *domain.Agent, ticketID string) (*assistant.Replies, error) {
	ticket, timeline, err := s.load(ctx, agent, ticketID)
	if err != nil {
		return nil, err
	}
	return s.assistant.SuggestReplies(ctx, ticket, timeline)
}

// Classify proposes priority and type. The ticket is not changed.
func (s *CopilotService) Classify(ctx context.Context, agent *domain.Agent, ticketID string) (*assistant.Classification, error) {
	ticket, err := s.tickets.Get(ctx, agent, ticketID)
	if err != nil {
		return nil, err
	}
	return s.assistant.ClassifyTicket(ctx, ticket)
}
