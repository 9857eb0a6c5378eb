package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/crm-service/internal/api/dto"
	"github.com/crmdesk/crm-service/internal/portal"
	"github.com/crmdesk/crm-service/internal/service"
)

// PortalHandler serves the customer portal and the WhatsApp intake.
type PortalHandler struct {
	auth     *portal.Service
	customer *service.CustomerPortalService
	intake   *service.IntakeService
}

// NewPortalHandler constructs handler.
func NewPortalHandler(auth *portal.Service, customer *service.CustomerPortalService, intake *service.IntakeService) *PortalHandler {
	return &PortalHandler{auth: auth, customer: customer, intake: intake}
}

// RequestCode POST /portal/auth/request. The answer is the same whether or
// not the email belongs to a contact.
func (h *PortalHandler) RequestCode(c *fiber.Ctx) error {
	var req dto.PortalCodeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.RequestCode(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"sent": true}})
}

// VerifyCode POST /portal/auth/verify.
func (h *PortalHandler) VerifyCode(c *fiber.Ctx) error {
	var req dto.PortalVerifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := h.auth.VerifyCode(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PortalSessionResponse{Token: session.ID, ExpiresAt: session.ExpiresAt}})
}

// Logout POST /portal/logout.
func (h *PortalHandler) Logout(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), session.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me GET /portal/me.
func (h *PortalHandler) Me(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	contact, err := h.customer.Me(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": contactResponse(contact)})
}

// Tickets GET /portal/tickets.
func (h *PortalHandler) Tickets(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	tickets, err := h.customer.Tickets(c.UserContext(), session, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.PortalTicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, portalTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Contracts GET /portal/contracts.
func (h *PortalHandler) Contracts(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	contracts, err := h.customer.Contracts(c.UserContext(), session)
	if err != nil {
		return err
	}
	items := make([]dto.ContractResponse, 0, len(contracts))
	for i := range contracts {
		items = append(items, contractResponse(&contracts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateTicket POST /portal/tickets.
func (h *PortalHandler) CreateTicket(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.PortalTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.customer.CreateTicket(c.UserContext(), session, service.PortalTicketInput{
		Title:       req.Title,
		Description: req.Description,
		TicketType:  req.TicketType,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": portalTicketResponse(ticket)})
}

// WhatsApp POST /intake/whatsapp.
func (h *PortalHandler) WhatsApp(c *fiber.Ctx) error {
	var req dto.WhatsAppIntakeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.intake.SubmitWhatsApp(c.UserContext(), service.WhatsAppInput{
		Phone:   req.Phone,
		Name:    req.Name,
		Token:   req.Token,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"ticket_id":    ticket.ID,
		"external_key": ticket.ExternalKey,
		"status":       ticket.Status,
	}})
}

// WhatsAppToken POST /intake/whatsapp/token.
func (h *PortalHandler) WhatsAppToken(c *fiber.Ctx) error {
	var req dto.WhatsAppTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	token, expiresAt, err := h.intake.MintWhatsAppToken(req.Phone)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: expiresAt}})
}

