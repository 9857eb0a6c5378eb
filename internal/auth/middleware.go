package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/crm-service/internal/domain"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

const (
	agentKey         = "auth_agent"
	portalSessionKey = "auth_portal_session"
)

// AgentSource resolves the agent behind a token, typically through the agent cache.
type AgentSource interface {
	Get(ctx context.Context, id string) (*domain.Agent, error)
}

// AuthMiddleware validates agent bearer tokens and loads the agent.
type AuthMiddleware struct {
	tokens *TokenManager
	agents AgentSource
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, agents AgentSource) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, agents: agents}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := BearerToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseSubject(raw, domain.SubjectTypeAgent)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	agent, err := m.agents.Get(c.UserContext(), claims.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("agent not found")
		}
		return apperrors.MapError(err)
	}
	if !agent.Active {
		return apperrors.NewUnauthorized("agent inactive")
	}

	c.Locals(agentKey, agent)
	return c.Next()
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// AgentFromContext retrieves the authenticated agent.
func AgentFromContext(c *fiber.Ctx) (*domain.Agent, bool) {
	agent, ok := c.Locals(agentKey).(*domain.Agent)
	return agent, ok && agent != nil
}

// WithAgent stores agent on the request, used by tests and by the middleware.
func WithAgent(c *fiber.Ctx, agent *domain.Agent) {
	c.Locals(agentKey, agent)
}

// SessionLookup resolves a portal session id.
type SessionLookup interface {
	Session(ctx context.Context, id string) (*domain.PortalSession, error)
}

// PortalMiddleware authenticates portal customers by server-side session id.
func PortalMiddleware(sessions SessionLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := BearerToken(c)
		if err != nil {
			return err
		}
		session, err := sessions.Session(c.UserContext(), raw)
		if err != nil {
			return err
		}
		c.Locals(portalSessionKey, session)
		return c.Next()
	}
}

// PortalSessionFromContext retrieves the portal session.
func PortalSessionFromContext(c *fiber.Ctx) (*domain.PortalSession, bool) {
	session, ok := c.Locals(portalSessionKey).(*domain.PortalSession)
	return session, ok && session != nil
}
