package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/crm-service/internal/api/dto"
	"github.com/crmdesk/crm-service/internal/service"
)

// AuthHandler serves agent login and the session views.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	agent, token, expiresAt, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"auth":  dto.AuthResponse{Token: token, ExpiresAt: expiresAt},
		"agent": agentResponse(agent),
	}})
}

// Me GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// Menu GET /me/menu.
func (h *AuthHandler) Menu(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.service.Menu(agent)})
}
