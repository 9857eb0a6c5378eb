package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/auth"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// whatsappEmailDomain marks contacts created from WhatsApp before they have
// a real address. The .invalid TLD never resolves.
const whatsappEmailDomain = "whatsapp.invalid"

// IntakeService opens tickets from external channels.
type IntakeService struct {
	tokens    *auth.TokenManager
	customers repository.CustomerRepository
	tickets   *TicketService
	logger    *zap.Logger
}

// WhatsAppInput is the quick-action payload sent by the WhatsApp bot.
type WhatsAppInput struct {
	Phone   string
	Name    string
	Token   string
	Message string
}

// NewIntakeService constructs the service. tokens must be keyed on the
// intake secret, not the agent secret.
func NewIntakeService(tokens *auth.TokenManager, customers repository.CustomerRepository, tickets *TicketService, logger *zap.Logger) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{tokens: tokens, customers: customers, tickets: tickets, logger: logger}
}

// NormalizePhone keeps the digits of a phone number.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MintWhatsAppToken issues a token bound to phone for the bot's quick action.
func (s *IntakeService) MintWhatsAppToken(phone string) (string, time.Time, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return "", time.Time{}, apperrors.NewValidationError("phone is required", nil)
	}
	token, exp, err := s.tokens.GenerateToken(normalized, domain.SubjectTypeIntake, nil)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

var errInvalidIntakeToken = apperrors.NewUnauthorized("invalid whatsapp token")

// SubmitWhatsApp validates the token against the phone, finds or creates the
// contact and opens a ticket with source whatsapp.
func (s *IntakeService) SubmitWhatsApp(ctx context.Context, in WhatsAppInput) (*domain.Ticket, error) {
	phone := NormalizePhone(in.Phone)
	if phone == "" || strings.TrimSpace(in.Token) == "" {
		return nil, apperrors.NewValidationError("phone and token are required", nil)
	}
	claims, err := s.tokens.ParseSubject(in.Token, domain.SubjectTypeIntake)
	if err != nil {
		s.logger.Warn("whatsapp token rejected", zap.Error(err))
		return nil, errInvalidIntakeToken
	}
	if claims.SubjectID != phone {
		return nil, errInvalidIntakeToken
	}

	contact, err := s.contactByPhone(ctx, phone, strings.TrimSpace(in.Name))
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(in.Message)
	title := fmt.Sprintf("WhatsApp: %s", contact.Name)
	if message != "" {
		title = fmt.Sprintf("WhatsApp: %s", firstLine(message, 80))
	}
	ticket, err := s.tickets.Open(ctx, TicketCreateInput{
		Title:       title,
		Description: message,
		Source:      domain.TicketSourceWhatsApp,
		ContactID:   &contact.ID,
	}, events.Actor{Type: domain.SubjectTypeIntake, ContactID: &contact.ID})
	if err != nil {
		return nil, err
	}
	s.logger.Info("whatsapp ticket opened", zap.String("ticket_id", ticket.ID), zap.String("contact_id", contact.ID))
	return ticket, nil
}

func (s *IntakeService) contactByPhone(ctx context.Context, phone, name string) (*domain.Contact, error) {
	contact, err := s.customers.GetContactByPhone(ctx, phone)
	if err == nil {
		return contact, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if name == "" {
		name = phone
	}
	contact = &domain.Contact{
		Name:  name,
		Email: phone + "@" + whatsappEmailDomain,
		Phone: &phone,
	}
	if err := s.customers.CreateContact(ctx, contact); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("contact created from whatsapp", zap.String("contact_id", contact.ID))
	return contact, nil
}

// firstLine returns the first line of s cut to limit runes.
func firstLine(s string, limit int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(strings.TrimSpace(s))
	if len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return string(r)
}
