// Package service holds the application workflows behind the HTTP handlers.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// boardLimit bounds the rows loaded for a board, export or dashboard.
const boardLimit = 500

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func agentActor(agentID string) events.Actor {
	id := agentID
	return events.Actor{Type: domain.SubjectTypeAgent, AgentID: &id}
}

func contactActor(contactID string) events.Actor {
	id := contactID
	return events.Actor{Type: domain.SubjectTypePortal, ContactID: &id}
}

func requireAgent(agent *domain.Agent) error {
	if agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	return nil
}

// ownerFilter turns the agent's visibility scope into a repository filter.
// A nil filter with a nil error means the agent sees everything.
func ownerFilter(agent *domain.Agent, resource permissions.Resource) (*repository.OwnershipFilter, error) {
	switch permissions.VisibilityScope(agent, resource) {
	case permissions.ScopeAll:
		return nil, nil
	case permissions.ScopeTeam:
		return &repository.OwnershipFilter{AgentID: agent.ID, TeamID: agent.TeamID}, nil
	case permissions.ScopeOwn:
		return &repository.OwnershipFilter{AgentID: agent.ID}, nil
	}
	return nil, apperrors.NewAccessRestricted(string(resource))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func ptr[T any](v T) *T {
	return &v
}
