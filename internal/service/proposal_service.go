package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// proposalTokenBytes is the entropy of a public proposal link.
const proposalTokenBytes = 24

// ProposalService issues commercial proposals and records the customer's
// answer from the public link.
type ProposalService struct {
	repo       repository.ProposalRepository
	leads      repository.LeadRepository
	pipeline   *PipelineService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	newToken   func() (string, error)
}

// ProposalDependencies bundles collaborators.
type ProposalDependencies struct {
	ProposalRepo    repository.ProposalRepository
	LeadRepo        repository.LeadRepository
	PipelineService *PipelineService
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
}

// ProposalCreateInput describes a proposal for a lead.
type ProposalCreateInput struct {
	LeadID      string
	Title       string
	Description string
	Value       float64
}

// PublicProposal is what the public link shows.
type PublicProposal struct {
	Proposal *domain.Proposal
	LeadName string
}

// NewProposalService constructs the service.
func NewProposalService(deps ProposalDependencies) *ProposalService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalService{
		repo:       deps.ProposalRepo,
		leads:      deps.LeadRepo,
		pipeline:   deps.PipelineService,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
		newToken:   randomToken,
	}
}

func randomToken() (string, error) {
	buf := make([]byte, proposalTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create issues a proposal for a lead the agent can see.
func (s *ProposalService) Create(ctx context.Context, agent *domain.Agent, in ProposalCreateInput) (*domain.Proposal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.LeadID == "" {
		return nil, apperrors.NewValidationError("lead_id and title are required", nil)
	}
	if in.Value < 0 {
		return nil, apperrors.NewValidationError("value must not be negative", nil)
	}
	lead, err := s.pipeline.GetLead(ctx, agent, in.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.Stage.IsClosed() {
		return nil, apperrors.NewConflict("lead already closed", map[string]any{"stage": lead.Stage})
	}
	token, err := s.newToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	p := &domain.Proposal{
		LeadID:      lead.ID,
		PublicToken: token,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Value:       in.Value,
		Status:      domain.ProposalPending,
		CreatedBy:   agent.ID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("proposal created", zap.String("proposal_id", p.ID), zap.String("lead_id", lead.ID))
	return p, nil
}

// ListByLead returns the proposals of a visible lead.
func (s *ProposalService) ListByLead(ctx context.Context, agent *domain.Agent, leadID string) ([]domain.Proposal, error) {
	if _, err := s.pipeline.GetLead(ctx, agent, leadID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// Public resolves a public link.
func (s *ProposalService) Public(ctx context.Context, token string) (*PublicProposal, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewNotFound("proposal", nil)
	}
	p, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "proposal", "")
	}
	out := &PublicProposal{Proposal: p}
	if lead, err := s.leads.GetByID(ctx, p.LeadID); err == nil {
		out.LeadName = lead.Name
	}
	return out, nil
}

// Respond records the customer's answer once. Accepting wins the lead and
// rejecting loses it, with the note as the lost reason.
func (s *ProposalService) Respond(ctx context.Context, token string, accept bool, note *string) (*domain.Proposal, error) {
	note = trimmed(note)
	p, err := s.repo.MutateByToken(ctx, token, func(p *domain.Proposal) error {
		if p.Status != domain.ProposalPending {
			return apperrors.NewConflict("proposal already answered", map[string]any{"status": p.Status})
		}
		p.Status = domain.ProposalRejected
		if accept {
			p.Status = domain.ProposalAccepted
		}
		p.ResponseNote = note
		p.RespondedAt = ptr(s.now().UTC())
		return nil
	})
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "proposal", "")
	}

	to, reason := domain.StageWon, ""
	if !accept {
		to, reason = domain.StageLost, "proposta recusada"
		if note != nil {
			reason = *note
		}
	}
	system := events.Actor{Type: domain.SubjectTypeSystem}
	if _, err := s.pipeline.transitionLead(ctx, p.LeadID, to, p.CreatedBy, system, reason, nil); err != nil {
		s.logger.Error("lead not moved after proposal response",
			zap.String("proposal_id", p.ID),
			zap.String("lead_id", p.LeadID),
			zap.Error(err))
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventProposalResponded,
		RecordType: domain.RecordLead,
		RecordID:   p.LeadID,
		Actor:      system,
		Payload: events.ProposalRespondedPayload{
			ProposalID: p.ID,
			Title:      p.Title,
			Status:     p.Status,
			CreatedBy:  p.CreatedBy,
		},
	})
	s.logger.Info("proposal answered", zap.String("proposal_id", p.ID), zap.String("status", string(p.Status)))
	return p, nil
}
