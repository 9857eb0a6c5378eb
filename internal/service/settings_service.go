package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// SettingsService reads and replaces the tenant settings document.
type SettingsService struct {
	repo   repository.SettingsRepository
	logger *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(repo repository.SettingsRepository, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, logger: logger}
}

// Get returns the settings document.
func (s *SettingsService) Get(ctx context.Context, agent *domain.Agent) (*domain.SystemSettings, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return settings, nil
}

// Put replaces the document. Only settings managers may write.
func (s *SettingsService) Put(ctx context.Context, agent *domain.Agent, values map[string]any) (*domain.SystemSettings, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	if !permissions.CanManageSettings(agent) {
		return nil, apperrors.NewAccessRestricted(string(permissions.RequireSettings))
	}
	if values == nil {
		return nil, apperrors.NewValidationError("settings body must be an object", nil)
	}
	settings, err := s.repo.Put(ctx, values, agent.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("settings updated", zap.String("agent_id", agent.ID), zap.Int("keys", len(values)))
	return settings, nil
}
