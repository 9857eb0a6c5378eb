package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/auth"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// AgentInvalidator drops cached agents after a change.
type AgentInvalidator interface {
	Invalidate(id string)
}

// AgentService manages internal users.
type AgentService struct {
	agents     repository.AgentRepository
	cache      AgentInvalidator
	bcryptCost int
	logger     *zap.Logger
}

// AgentListFilters define listing parameters.
type AgentListFilters struct {
	AgentTypes []domain.AgentType
	TeamID     *string
	ActiveOnly bool
	SearchTerm *string
	Limit      int
	Offset     int
}

// AgentCreateInput describes a new agent.
type AgentCreateInput struct {
	Name        string
	Email       string
	Password    string
	AgentType   domain.AgentType
	TeamID      *string
	Permissions *domain.AgentPermissions
}

// AgentUpdateInput carries optional changes; nil fields are left alone.
type AgentUpdateInput struct {
	Name        *string
	Password    *string
	AgentType   *domain.AgentType
	TeamID      *string
	ClearTeam   bool
	Permissions *domain.AgentPermissions
	Active      *bool
}

// NewAgentService constructs the service. cache may be nil.
func NewAgentService(agents repository.AgentRepository, cache AgentInvalidator, bcryptCost int, logger *zap.Logger) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{agents: agents, cache: cache, bcryptCost: bcryptCost, logger: logger}
}

func requireManageAgents(actor *domain.Agent) error {
	if err := requireAgent(actor); err != nil {
		return err
	}
	if !permissions.CanManageAgents(actor) {
		return apperrors.NewAccessRestricted("manage_agents")
	}
	return nil
}

// List returns agents. Any authenticated agent may read the directory, since
// assignment pickers need it.
func (s *AgentService) List(ctx context.Context, actor *domain.Agent, f AgentListFilters) ([]domain.Agent, error) {
	if err := requireAgent(actor); err != nil {
		return nil, err
	}
	agents, err := s.agents.List(ctx, repository.AgentFilter{
		AgentTypes: f.AgentTypes,
		TeamID:     f.TeamID,
		ActiveOnly: f.ActiveOnly,
		SearchTerm: trimmed(f.SearchTerm),
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// Create adds an agent.
func (s *AgentService) Create(ctx context.Context, actor *domain.Agent, in AgentCreateInput) (*domain.Agent, error) {
	if err := requireManageAgents(actor); err != nil {
		return nil, err
	}
	if !in.AgentType.Valid() {
		return nil, apperrors.NewValidationError("invalid agent_type", map[string]any{"agent_type": in.AgentType})
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.agents.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	agent := &domain.Agent{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		AgentType:    in.AgentType,
		TeamID:       trimmed(in.TeamID),
		Permissions:  in.Permissions,
		Active:       true,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("agent created", zap.String("agent_id", agent.ID), zap.String("by", actor.ID))
	return agent, nil
}

// Update changes an agent's profile, role, permissions or status.
func (s *AgentService) Update(ctx context.Context, actor *domain.Agent, id string, in AgentUpdateInput) (*domain.Agent, error) {
	if err := requireManageAgents(actor); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "agent", id)
	}

	if in.Name != nil {
		agent.Name = strings.TrimSpace(*in.Name)
	}
	if in.AgentType != nil {
		if !in.AgentType.Valid() {
			return nil, apperrors.NewValidationError("invalid agent_type", map[string]any{"agent_type": *in.AgentType})
		}
		agent.AgentType = *in.AgentType
	}
	if in.ClearTeam {
		agent.TeamID = nil
	} else if in.TeamID != nil {
		agent.TeamID = trimmed(in.TeamID)
	}
	if in.Permissions != nil {
		agent.Permissions = in.Permissions
	}
	if in.Active != nil {
		if !*in.Active && agent.ID == actor.ID {
			return nil, apperrors.NewConflict("cannot deactivate yourself", nil)
		}
		agent.Active = *in.Active
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		agent.PasswordHash = hash
	}

	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, apperrors.NotFoundOr(err, "agent", id)
	}
	if s.cache != nil {
		s.cache.Invalidate(agent.ID)
	}
	s.logger.Info("agent updated", zap.String("agent_id", agent.ID), zap.String("by", actor.ID))
	return agent, nil
}
