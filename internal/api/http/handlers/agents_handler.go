package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/crm-service/internal/api/dto"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/service"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// AgentsHandler manages agent accounts and system settings.
type AgentsHandler struct {
	agents   *service.AgentService
	settings *service.SettingsService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents *service.AgentService, settings *service.SettingsService) *AgentsHandler {
	return &AgentsHandler{agents: agents, settings: settings}
}

// ListAgents GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	f := service.AgentListFilters{
		AgentTypes: splitList[domain.AgentType](c.Query("agent_type")),
		TeamID:     optional(c.Query("team_id")),
		SearchTerm: optional(c.Query("q")),
	}
	if active := parseBool(c.Query("active")); active != nil {
		f.ActiveOnly = *active
	}
	f.Limit, f.Offset = page(c)
	agents, err := h.agents.List(c.UserContext(), actor, f)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateAgent POST /agents.
func (h *AgentsHandler) CreateAgent(c *fiber.Ctx) error {
	actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.AgentCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	agent, err := h.agents.Create(c.UserContext(), actor, service.AgentCreateInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		AgentType:   req.AgentType,
		TeamID:      req.TeamID,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// UpdateAgent PATCH /agents/:id.
func (h *AgentsHandler) UpdateAgent(c *fiber.Ctx) error {
	actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.AgentUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := pathID(c, "id", "agent")
	if err != nil {
		return err
	}
	agent, err := h.agents.Update(c.UserContext(), actor, id, service.AgentUpdateInput{
		Name:        req.Name,
		Password:    req.Password,
		AgentType:   req.AgentType,
		TeamID:      req.TeamID,
		ClearTeam:   req.ClearTeam,
		Permissions: req.Permissions,
		Active:      req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// GetSettings GET /settings.
func (h *AgentsHandler) GetSettings(c *fiber.Ctx) error {
	actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	settings, err := h.settings.Get(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(settings)})
}

// PutSettings PUT /settings.
func (h *AgentsHandler) PutSettings(c *fiber.Ctx) error {
	actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	var values map[string]any
	if err := c.BodyParser(&values); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.settings.Put(c.UserContext(), actor, values)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(settings)})
}

func settingsResponse(s *domain.SystemSettings) dto.SettingsResponse {
	values := s.Values
	if values == nil {
		values = map[string]any{}
	}
	return dto.SettingsResponse{Values: values, UpdatedBy: s.UpdatedBy, UpdatedAt: s.UpdatedAt}
}
