package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// ActivityService keeps record timelines and the personal task list.
type ActivityService struct {
	activities repository.ActivityRepository
	tickets    repository.TicketRepository
	leads      repository.LeadRepository
	referrals  repository.ReferralRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ActivityDependencies bundles collaborators.
type ActivityDependencies struct {
	ActivityRepo repository.ActivityRepository
	TicketRepo   repository.TicketRepository
	LeadRepo     repository.LeadRepository
	ReferralRepo repository.ReferralRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// ActivityCreateInput describes a timeline entry or task.
type ActivityCreateInput struct {
	Type         domain.ActivityType
	Subject      string
	Description  string
	RecordType   domain.RecordType
	RecordID     string
	ScheduledFor *time.Time
}

// TaskListFilters narrows the caller's task list.
type TaskListFilters struct {
	Completed *bool
	DueBefore *time.Time
	Limit     int
	Offset    int
}

// NewActivityService constructs the service.
func NewActivityService(deps ActivityDependencies) *ActivityService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		activities: deps.ActivityRepo,
		tickets:    deps.TicketRepo,
		leads:      deps.LeadRepo,
		referrals:  deps.ReferralRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// checkRecord loads the owning record and verifies the agent may see it.
func (s *ActivityService) checkRecord(ctx context.Context, agent *domain.Agent, recordType domain.RecordType, id string) error {
	var owner, team *string
	switch recordType {
	case domain.RecordTicket:
		t, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			return apperrors.NotFoundOr(err, "ticket", id)
		}
		if !canSeeTicket(agent, t) {
			return apperrors.NewForbidden("access denied")
		}
		return nil
	case domain.RecordLead:
		l, err := s.leads.GetByID(ctx, id)
		if err != nil {
			return apperrors.NotFoundOr(err, "lead", id)
		}
		owner, team = l.AgentID, l.TeamID
	case domain.RecordReferral:
		r, err := s.referrals.GetByID(ctx, id)
		if err != nil {
			return apperrors.NotFoundOr(err, "referral", id)
		}
		owner, team = r.AgentID, r.TeamID
	default:
		return apperrors.NewValidationError("invalid record_type", map[string]any{"record_type": recordType})
	}
	if !permissions.CanSeeRecord(agent, permissions.ResourceLeads, owner, team) {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}

// Create records an activity against a visible record. stage_change entries
// are written by the pipelines only.
func (s *ActivityService) Create(ctx context.Context, agent *domain.Agent, in ActivityCreateInput) (*domain.Activity, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	if !in.Type.Valid() || in.Type == domain.ActivityStageChange {
		return nil, apperrors.NewValidationError("invalid type", map[string]any{"type": in.Type})
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if in.RecordID == "" {
		return nil, apperrors.NewValidationError("record_id is required", nil)
	}
	if err := s.checkRecord(ctx, agent, in.RecordType, in.RecordID); err != nil {
		return nil, err
	}

	act := &domain.Activity{
		Type:         in.Type,
		Subject:      subject,
		Description:  strings.TrimSpace(in.Description),
		RecordType:   in.RecordType,
		RecordID:     in.RecordID,
		AgentID:      agent.ID,
		ScheduledFor: in.ScheduledFor,
	}
	if err := s.activities.Create(ctx, act); err != nil {
		return nil, apperrors.MapError(err)
	}
	if act.Type == domain.ActivityTask && act.ScheduledFor != nil {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:       events.EventActivityTaskScheduled,
			RecordType: act.RecordType,
			RecordID:   act.RecordID,
			Actor:      agentActor(agent.ID),
			Payload: events.TaskScheduledPayload{
				ActivityID:   act.ID,
				AgentID:      act.AgentID,
				Subject:      act.Subject,
				ScheduledFor: *act.ScheduledFor,
			},
		})
	}
	s.logger.Info("activity created",
		zap.String("activity_id", act.ID),
		zap.String("type", string(act.Type)),
		zap.String("record_id", act.RecordID))
	return act, nil
}

// Timeline returns the activities of a record, most recent first.
func (s *ActivityService) Timeline(ctx context.Context, agent *domain.Agent, recordType domain.RecordType, recordID string) ([]domain.Activity, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	if err := s.checkRecord(ctx, agent, recordType, recordID); err != nil {
		return nil, err
	}
	items, err := s.activities.ListByRecord(ctx, recordType, recordID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// Tasks lists the caller's own tasks.
func (s *ActivityService) Tasks(ctx context.Context, agent *domain.Agent, f TaskListFilters) ([]domain.Activity, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	items, err := s.activities.ListTasks(ctx, repository.TaskFilter{
		AgentID:     agent.ID,
		Completed:   f.Completed,
		ScheduledTo: f.DueBefore,
		Limit:       f.Limit,
		Offset:      f.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// Complete marks an activity done. Agents complete their own activities;
// others need visibility of the underlying record.
func (s *ActivityService) Complete(ctx context.Context, agent *domain.Agent, id string) (*domain.Activity, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	act, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "activity", id)
	}
	if act.AgentID != agent.ID {
		if err := s.checkRecord(ctx, agent, act.RecordType, act.RecordID); err != nil {
			return nil, err
		}
	}
	done, err := s.activities.Complete(ctx, id, s.now().UTC())
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "activity", id)
	}
	return done, nil
}
