package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/permissions"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// RequireAgent ensures an agent is authenticated.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := AgentFromContext(c); !ok {
			return apperrors.NewUnauthorized("agent required")
		}
		return c.Next()
	}
}

// RequireModule gates a route group on module access.
func RequireModule(module permissions.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agent, ok := AgentFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("agent required")
		}
		if !permissions.CanAccessModule(agent, module) {
			return apperrors.NewAccessRestricted(string(module))
		}
		return c.Next()
	}
}

// RequireAnyModule passes when the agent can open at least one of modules.
func RequireAnyModule(modules ...permissions.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agent, ok := AgentFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("agent required")
		}
		for _, m := range modules {
			if permissions.CanAccessModule(agent, m) {
				return c.Next()
			}
		}
		required := ""
		if len(modules) > 0 {
			required = string(modules[0])
		}
		return apperrors.NewAccessRestricted(required)
	}
}

// RequireCapability gates a route on a named capability check.
func RequireCapability(name string, check func(*domain.Agent) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agent, ok := AgentFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("agent required")
		}
		if !check(agent) {
			return apperrors.NewAccessRestricted(name)
		}
		return c.Next()
	}
}

// RequirePortal ensures a portal session is present.
func RequirePortal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PortalSessionFromContext(c); !ok {
			return apperrors.NewUnauthorized("portal session required")
		}
		return c.Next()
	}
}
