package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// CustomerPortalService serves the signed-in customer's own data.
type CustomerPortalService struct {
	customers repository.CustomerRepository
	ticketsDB repository.TicketRepository
	tickets   *TicketService
	logger    *zap.Logger
}

// PortalTicketInput is a ticket opened from the portal.
type PortalTicketInput struct {
	Title       string
	Description string
	TicketType  domain.TicketType
}

// NewCustomerPortalService constructs the service.
func NewCustomerPortalService(customers repository.CustomerRepository, ticketRepo repository.TicketRepository, tickets *TicketService, logger *zap.Logger) *CustomerPortalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerPortalService{customers: customers, ticketsDB: ticketRepo, tickets: tickets, logger: logger}
}

func requireSession(session *domain.PortalSession) error {
	if session == nil || session.ContactID == "" {
		return apperrors.NewUnauthorized("portal session required")
	}
	return nil
}

// Me returns the session's contact.
func (s *CustomerPortalService) Me(ctx context.Context, session *domain.PortalSession) (*domain.Contact, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	contact, err := s.customers.GetContactByID(ctx, session.ContactID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "contact", session.ContactID)
	}
	return contact, nil
}

// Tickets lists the contact's tickets, newest first.
func (s *CustomerPortalService) Tickets(ctx context.Context, session *domain.PortalSession, limit, offset int) ([]domain.Ticket, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	contactID := session.ContactID
	tickets, err := s.ticketsDB.ListWithFilter(ctx, repository.TicketFilter{
		ContactID: &contactID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Contracts lists the contact's contracts.
func (s *CustomerPortalService) Contracts(ctx context.Context, session *domain.PortalSession) ([]domain.Contract, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	contracts, err := s.customers.ListContracts(ctx, session.ContactID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return contracts, nil
}

// CreateTicket opens a ticket for the contact. Priority is left to triage.
func (s *CustomerPortalService) CreateTicket(ctx context.Context, session *domain.PortalSession, in PortalTicketInput) (*domain.Ticket, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	contactID := session.ContactID
	ticket, err := s.tickets.Open(ctx, TicketCreateInput{
		Title:       in.Title,
		Description: in.Description,
		TicketType:  in.TicketType,
		Source:      domain.TicketSourcePortal,
		ContactID:   &contactID,
	}, contactActor(contactID))
	if err != nil {
		return nil, err
	}
	s.logger.Info("portal ticket opened", zap.String("ticket_id", ticket.ID), zap.String("contact_id", contactID))
	return ticket, nil
}
