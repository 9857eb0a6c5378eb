package dto

import (
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
)

// PortalCodeRequest asks for a one-time sign-in code.
type PortalCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PortalVerifyRequest exchanges a code for a session.
type PortalVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// PortalSessionResponse is returned after a successful verification.
type PortalSessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PortalTicketRequest is a ticket opened by a customer.
type PortalTicketRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	TicketType  domain.TicketType `json:"ticket_type" validate:"omitempty,oneof=support sales collection"`
}

// ContactResponse is the signed-in customer.
type ContactResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

// ContractResponse is a customer contract.
type ContractResponse struct {
	ID           string                `json:"id"`
	Number       string                `json:"number"`
	Status       domain.ContractStatus `json:"status"`
	MonthlyValue float64               `json:"monthly_value"`
	DueDay       int                   `json:"due_day"`
}

// PortalTicketResponse hides internal routing fields from customers.
type PortalTicketResponse struct {
	ID          string              `json:"id"`
	ExternalKey string              `json:"external_key"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	TicketType  domain.TicketType   `json:"ticket_type"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// WhatsAppIntakeRequest is the bot's quick-action payload.
type WhatsAppIntakeRequest struct {
	Phone   string `json:"phone" validate:"required"`
	Name    string `json:"name" validate:"max=120"`
	Token   string `json:"token" validate:"required"`
	Message string `json:"message" validate:"max=5000"`
}

// WhatsAppTokenRequest asks for a quick-action token bound to a phone.
type WhatsAppTokenRequest struct {
	Phone string `json:"phone" validate:"required"`
}
