package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/auth"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// AuthService coordinates agent login.
type AuthService struct {
	agents   repository.AgentRepository
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(agents repository.AgentRepository, tokenMgr *auth.TokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{agents: agents, tokenMgr: tokenMgr, logger: logger}
}

var errInvalidCredentials = apperrors.NewUnauthorized("invalid credentials")

// Login authenticates an agent and returns a role-bearing token. Unknown
// emails, wrong passwords and inactive accounts fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	agent, err := s.agents.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		auth.BurnCompare(password)
		return nil, "", time.Time{}, errInvalidCredentials
	}
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errInvalidCredentials
	}
	if !agent.Active {
		return nil, "", time.Time{}, errInvalidCredentials
	}
	token, exp, err := s.tokenMgr.GenerateToken(agent.ID, domain.SubjectTypeAgent, &agent.AgentType)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("agent logged in", zap.String("agent_id", agent.ID))
	return agent, token, exp, nil
}

// Menu returns the navigation the agent is allowed to see.
func (s *AuthService) Menu(agent *domain.Agent) []permissions.MenuItem {
	return permissions.FilterMenuItems(agent, permissions.DefaultMenu())
}
