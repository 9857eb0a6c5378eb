package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/export"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/pipeline"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// PipelineService runs the lead and referral pipelines. Referrals share the
// lead visibility scope.
type PipelineService struct {
	leads      repository.LeadRepository
	referrals  repository.ReferralRepository
	activities repository.ActivityRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// PipelineDependencies bundles collaborators.
type PipelineDependencies struct {
	LeadRepo     repository.LeadRepository
	ReferralRepo repository.ReferralRepository
	ActivityRepo repository.ActivityRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// LeadCreateInput describes a new lead.
type LeadCreateInput struct {
	Kind     domain.LeadKind
	Name     string
	Company  *string
	Document *string
	Email    *string
	Phone    *string
	Value    float64
	AgentID  *string
}

// LeadListFilters narrows lead listings.
type LeadListFilters struct {
	Kind       *domain.LeadKind
	Stages     []domain.Stage
	AgentID    *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// ReferralCreateInput describes a new referral.
type ReferralCreateInput struct {
	ReferrerName    string
	ReferrerContact *string
	ReferredName    string
	ReferredContact *string
	CommissionValue float64
	AgentID         *string
}

// ReferralListFilters narrows referral listings.
type ReferralListFilters struct {
	Stages             []domain.Stage
	CommissionStatuses []domain.CommissionStatus
	Limit              int
	Offset             int
}

// NewPipelineService constructs the service.
func NewPipelineService(deps PipelineDependencies) *PipelineService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineService{
		leads:      deps.LeadRepo,
		referrals:  deps.ReferralRepo,
		activities: deps.ActivityRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

func canSeeLead(agent *domain.Agent, ownerID, teamID *string) bool {
	return permissions.CanSeeRecord(agent, permissions.ResourceLeads, ownerID, teamID)
}

// CreateLead adds a lead in the first column. The creator owns it unless
// another agent is named.
func (s *PipelineService) CreateLead(ctx context.Context, agent *domain.Agent, in LeadCreateInput) (*domain.Lead, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	if in.Kind == "" {
		in.Kind = domain.LeadKindPF
	}
	if in.Kind != domain.LeadKindPF && in.Kind != domain.LeadKindPJ {
		return nil, apperrors.NewValidationError("invalid kind", map[string]any{"kind": in.Kind})
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if in.Value < 0 {
		return nil, apperrors.NewValidationError("value must not be negative", nil)
	}
	owner := trimmed(in.AgentID)
	if owner == nil {
		owner = ptr(agent.ID)
	}
	lead := &domain.Lead{
		Kind:         in.Kind,
		Name:         name,
		Company:      trimmed(in.Company),
		Document:     trimmed(in.Document),
		Email:        trimmed(in.Email),
		Phone:        trimmed(in.Phone),
		Stage:        domain.StageNew,
		StageHistory: []domain.StageHistoryEntry{},
		Value:        in.Value,
		AgentID:      owner,
		TeamID:       agent.TeamID,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("lead created", zap.String("lead_id", lead.ID), zap.String("agent_id", agent.ID))
	return lead, nil
}

// ListLeads returns the leads visible to the agent.
func (s *PipelineService) ListLeads(ctx context.Context, agent *domain.Agent, f LeadListFilters) ([]domain.Lead, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	owner, err := ownerFilter(agent, permissions.ResourceLeads)
	if err != nil {
		return nil, err
	}
	leads, err := s.leads.ListWithFilter(ctx, repository.LeadFilter{
		Owner:      owner,
		Kind:       f.Kind,
		Stages:     f.Stages,
		AgentID:    f.AgentID,
		SearchTerm: trimmed(f.SearchTerm),
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return leads, nil
}

// GetLead loads a lead the agent may see.
func (s *PipelineService) GetLead(ctx context.Context, agent *domain.Agent, id string) (*domain.Lead, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "lead", id)
	}
	if !canSeeLead(agent, lead.AgentID, lead.TeamID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return lead, nil
}

// LeadBoard groups the agent's leads by stage.
func (s *PipelineService) LeadBoard(ctx context.Context, agent *domain.Agent, kind *domain.LeadKind) ([]pipeline.Column[domain.Lead], error) {
	leads, err := s.ListLeads(ctx, agent, LeadListFilters{Kind: kind, Limit: boardLimit})
	if err != nil {
		return nil, err
	}
	return pipeline.GroupLeadsByStage(leads), nil
}

// ExportLeads writes the agent's leads as CSV.
func (s *PipelineService) ExportLeads(ctx context.Context, agent *domain.Agent, f LeadListFilters, w io.Writer) error {
	f.Limit, f.Offset = boardLimit, 0
	leads, err := s.ListLeads(ctx, agent, f)
	if err != nil {
		return err
	}
	if err := export.WriteLeads(w, leads); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// MoveLead moves a lead to the stage named raw on behalf of an agent.
func (s *PipelineService) MoveLead(ctx context.Context, agent *domain.Agent, id, raw, lostReason string) (*domain.Lead, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	to, ok := domain.ParseStage(raw, domain.LeadStages)
	if !ok {
		return nil, apperrors.NewValidationError("invalid stage", map[string]any{"stage": raw})
	}
	return s.transitionLead(ctx, id, to, agent.ID, agentActor(agent.ID), lostReason, func(l *domain.Lead) error {
		if !canSeeLead(agent, l.AgentID, l.TeamID) {
			return apperrors.NewForbidden("access denied")
		}
		return nil
	})
}

// DropLead applies a board drop to a lead.
func (s *PipelineService) DropLead(ctx context.Context, agent *domain.Agent, drop pipeline.DropEvent) (*domain.Lead, error) {
	if drop.DraggableID == "" || drop.DestinationID == "" {
		return nil, apperrors.NewValidationError("draggable_id and destination_droppable_id are required", nil)
	}
	if !drop.Moved() {
		return s.GetLead(ctx, agent, drop.DraggableID)
	}
	return s.MoveLead(ctx, agent, drop.DraggableID, drop.DestinationID, "")
}

// transitionLead is the single write path for lead stage changes. check runs
// under the row lock before the move.
func (s *PipelineService) transitionLead(ctx context.Context, id string, to domain.Stage, actorID string, actor events.Actor, lostReason string, check func(*domain.Lead) error) (*domain.Lead, error) {
	var change pipeline.Change
	lead, err := s.leads.Mutate(ctx, id, func(l *domain.Lead) error {
		if check != nil {
			if err := check(l); err != nil {
				return err
			}
		}
		var moved bool
		change, moved = pipeline.ApplyLeadStage(l, to, actorID, s.now(), pipeline.LeadOptions{LostReason: lostReason})
		if !moved {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		current, err := s.leads.GetByID(ctx, id)
		if err != nil {
			return nil, apperrors.NotFoundOr(err, "lead", id)
		}
		return current, nil
	}
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "lead", id)
	}

	s.recordStageChange(ctx, domain.RecordLead, lead.ID, actorID, change)
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventLeadStageChanged,
		RecordType: domain.RecordLead,
		RecordID:   lead.ID,
		Actor:      actor,
		Payload: events.StageChangedPayload{
			Name:      lead.Name,
			FromStage: change.From,
			ToStage:   change.To,
			AgentID:   lead.AgentID,
		},
	})
	s.logger.Info("lead stage changed",
		zap.String("lead_id", lead.ID),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)))
	return lead, nil
}

// recordStageChange writes the timeline entry for a move. The move itself is
// already committed, so a failure here is logged and not returned.
func (s *PipelineService) recordStageChange(ctx context.Context, recordType domain.RecordType, recordID, actorID string, change pipeline.Change) {
	if s.activities == nil {
		return
	}
	act := &domain.Activity{
		Type:        domain.ActivityStageChange,
		Subject:     fmt.Sprintf("%s → %s", change.From, change.To),
		RecordType:  recordType,
		RecordID:    recordID,
		AgentID:     actorID,
		Completed:   true,
		CompletedAt: ptr(s.now().UTC()),
	}
	if err := s.activities.Create(ctx, act); err != nil {
		s.logger.Warn("stage change activity not recorded",
			zap.String("record_type", string(recordType)),
			zap.String("record_id", recordID),
			zap.Error(err))
	}
}

// CreateReferral adds a referral in the first column.
func (s *PipelineService) CreateReferral(ctx context.Context, agent *domain.Agent, in ReferralCreateInput) (*domain.Referral, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	referrer := strings.TrimSpace(in.ReferrerName)
	referred := strings.TrimSpace(in.ReferredName)
	if referrer == "" || referred == "" {
		return nil, apperrors.NewValidationError("referrer_name and referred_name are required", nil)
	}
	if in.CommissionValue < 0 {
		return nil, apperrors.NewValidationError("commission_value must not be negative", nil)
	}
	owner := trimmed(in.AgentID)
	if owner == nil {
		owner = ptr(agent.ID)
	}
	referral := &domain.Referral{
		ReferrerName:     referrer,
		ReferrerContact:  trimmed(in.ReferrerContact),
		ReferredName:     referred,
		ReferredContact:  trimmed(in.ReferredContact),
		Stage:            domain.StageNew,
		StageHistory:     []domain.StageHistoryEntry{},
		Status:           domain.ReferralStatusActive,
		CommissionValue:  in.CommissionValue,
		CommissionStatus: domain.CommissionPending,
		AgentID:          owner,
		TeamID:           agent.TeamID,
	}
	if err := s.referrals.Create(ctx, referral); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("referral created", zap.String("referral_id", referral.ID), zap.String("agent_id", agent.ID))
	return referral, nil
}

// ListReferrals returns the referrals visible to the agent.
func (s *PipelineService) ListReferrals(ctx context.Context, agent *domain.Agent, f ReferralListFilters) ([]domain.Referral, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	owner, err := ownerFilter(agent, permissions.ResourceLeads)
	if err != nil {
		return nil, err
	}
	referrals, err := s.referrals.ListWithFilter(ctx, repository.ReferralFilter{
		Owner:              owner,
		Stages:             f.Stages,
		CommissionStatuses: f.CommissionStatuses,
		Limit:              f.Limit,
		Offset:             f.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return referrals, nil
}

// ReferralBoard groups the agent's referrals by stage.
func (s *PipelineService) ReferralBoard(ctx context.Context, agent *domain.Agent) ([]pipeline.Column[domain.Referral], error) {
	referrals, err := s.ListReferrals(ctx, agent, ReferralListFilters{Limit: boardLimit})
	if err != nil {
		return nil, err
	}
	return pipeline.GroupReferralsByStage(referrals), nil
}

// MoveReferral moves a referral to the stage named raw.
func (s *PipelineService) MoveReferral(ctx context.Context, agent *domain.Agent, id, raw string) (*domain.Referral, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	to, ok := domain.ParseStage(raw, domain.ReferralStages)
	if !ok {
		return nil, apperrors.NewValidationError("invalid stage", map[string]any{"stage": raw})
	}

	var change pipeline.Change
	referral, err := s.referrals.Mutate(ctx, id, func(r *domain.Referral) error {
		if !canSeeLead(agent, r.AgentID, r.TeamID) {
			return apperrors.NewForbidden("access denied")
		}
		var moved bool
		change, moved = pipeline.ApplyReferralStage(r, to, agent.ID, s.now())
		if !moved {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		current, err := s.referrals.GetByID(ctx, id)
		if err != nil {
			return nil, apperrors.NotFoundOr(err, "referral", id)
		}
		return current, nil
	}
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "referral", id)
	}

	s.recordStageChange(ctx, domain.RecordReferral, referral.ID, agent.ID, change)
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventReferralStageChanged,
		RecordType: domain.RecordReferral,
		RecordID:   referral.ID,
		Actor:      agentActor(agent.ID),
		Payload: events.StageChangedPayload{
			Name:      referral.ReferredName,
			FromStage: change.From,
			ToStage:   change.To,
			AgentID:   referral.AgentID,
		},
	})
	s.logger.Info("referral stage changed",
		zap.String("referral_id", referral.ID),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)))
	return referral, nil
}

// DropReferral applies a board drop to a referral.
func (s *PipelineService) DropReferral(ctx context.Context, agent *domain.Agent, drop pipeline.DropEvent) (*domain.Referral, error) {
	if drop.DraggableID == "" || drop.DestinationID == "" {
		return nil, apperrors.NewValidationError("draggable_id and destination_droppable_id are required", nil)
	}
	if !drop.Moved() {
		referral, err := s.referrals.GetByID(ctx, drop.DraggableID)
		if err != nil {
			return nil, apperrors.NotFoundOr(err, "referral", drop.DraggableID)
		}
		if !canSeeLead(agent, referral.AgentID, referral.TeamID) {
			return nil, apperrors.NewForbidden("access denied")
		}
		return referral, nil
	}
	return s.MoveReferral(ctx, agent, drop.DraggableID, drop.DestinationID)
}
