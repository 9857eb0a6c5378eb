package dto

import (
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AgentResponse is the public view of an agent. The password hash never leaves the service.
type AgentResponse struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Email       string                   `json:"email"`
	AgentType   domain.AgentType         `json:"agent_type"`
	TeamID      *string                  `json:"team_id"`
	Permissions *domain.AgentPermissions `json:"permissions,omitempty"`
	Active      bool                     `json:"active"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// AgentCreateRequest payload.
type AgentCreateRequest struct {
	Name        string                   `json:"name" validate:"required,max=120"`
	Email       string                   `json:"email" validate:"required,email"`
	Password    string                   `json:"password" validate:"required,min=8"`
	AgentType   domain.AgentType         `json:"agent_type" validate:"required,oneof=admin supervisor support sales collection"`
	TeamID      *string                  `json:"team_id"`
	Permissions *domain.AgentPermissions `json:"permissions"`
}

// AgentUpdateRequest payload; absent fields are left unchanged.
type AgentUpdateRequest struct {
	Name        *string                  `json:"name" validate:"omitempty,min=1,max=120"`
	Password    *string                  `json:"password" validate:"omitempty,min=8"`
	AgentType   *domain.AgentType        `json:"agent_type" validate:"omitempty,oneof=admin supervisor support sales collection"`
	TeamID      *string                  `json:"team_id"`
	ClearTeam   bool                     `json:"clear_team"`
	Permissions *domain.AgentPermissions `json:"permissions"`
	Active      *bool                    `json:"active"`
}

// SettingsResponse wraps the settings document.
type SettingsResponse struct {
	Values    map[string]any `json:"values"`
	UpdatedBy *string        `json:"updated_by"`
	UpdatedAt time.Time      `json:"updated_at"`
}
