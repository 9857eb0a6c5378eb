package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// QueueService manages ticket queues.
type QueueService struct {
	repo   repository.QueueRepository
	logger *zap.Logger
}

// QueueCreateInput describes a new queue.
type QueueCreateInput struct {
	Name       string
	TicketType domain.TicketType
	TeamID     *string
}

// NewQueueService constructs the service.
func NewQueueService(repo repository.QueueRepository, logger *zap.Logger) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{repo: repo, logger: logger}
}

// List returns queues, optionally only the active ones.
func (s *QueueService) List(ctx context.Context, activeOnly bool) ([]domain.Queue, error) {
	queues, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return queues, nil
}

// Create adds a queue. Queues are configuration, so settings managers own them.
func (s *QueueService) Create(ctx context.Context, agent *domain.Agent, in QueueCreateInput) (*domain.Queue, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	if !permissions.CanManageSettings(agent) {
		return nil, apperrors.NewAccessRestricted(string(permissions.RequireSettings))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if in.TicketType == "" {
		in.TicketType = domain.TicketTypeSupport
	}
	if !in.TicketType.Valid() {
		return nil, apperrors.NewValidationError("invalid ticket_type", map[string]any{"ticket_type": in.TicketType})
	}
	q := &domain.Queue{Name: name, TicketType: in.TicketType, TeamID: trimmed(in.TeamID), Active: true}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("queue created", zap.String("queue_id", q.ID), zap.String("agent_id", agent.ID))
	return q, nil
}
