package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/insights"
	"github.com/crmdesk/crm-service/internal/permissions"
	"github.com/crmdesk/crm-service/internal/pipeline"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// atRiskListSize bounds the at-risk ticket list on the dashboard.
const atRiskListSize = 10

// ReportService builds dashboard aggregates over the records an agent may see.
type ReportService struct {
	tickets    repository.TicketRepository
	leads      repository.LeadRepository
	referrals  repository.ReferralRepository
	riskWindow time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// Dashboard is the reports landing page.
type Dashboard struct {
	Tickets     insights.TicketSummary
	BoardCounts map[domain.TicketStatus]int
	AtRisk      []domain.Ticket
	Sales       *insights.SalesSummary
	Referrals   map[domain.Stage]int
	Commissions map[domain.CommissionStatus]float64
	GeneratedAt time.Time
	WindowHours float64
}

// NewReportService constructs the service.
func NewReportService(tickets repository.TicketRepository, leads repository.LeadRepository, referrals repository.ReferralRepository, riskWindow time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if riskWindow <= 0 {
		riskWindow = insights.DefaultRiskWindow
	}
	return &ReportService{
		tickets:    tickets,
		leads:      leads,
		referrals:  referrals,
		riskWindow: riskWindow,
		logger:     logger,
		now:        time.Now,
	}
}

// Dashboard aggregates tickets for everyone with reports access and adds the
// sales figures when the agent can see leads.
func (s *ReportService) Dashboard(ctx context.Context, agent *domain.Agent) (*Dashboard, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	if !permissions.CanAccessReports(agent) {
		return nil, apperrors.NewAccessRestricted(string(permissions.RequireReports))
	}
	now := s.now()

	ticketOwner, err := ownerFilter(agent, permissions.ResourceTickets)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{Owner: ticketOwner, Limit: boardLimit})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	atRisk := insights.SLAAtRisk(tickets, now, s.riskWindow)
	sort.Slice(atRisk, func(i, j int) bool {
		return atRisk[i].SLAResolutionDeadline.Before(*atRisk[j].SLAResolutionDeadline)
	})
	if len(atRisk) > atRiskListSize {
		atRisk = atRisk[:atRiskListSize]
	}

	d := &Dashboard{
		Tickets:     insights.SummarizeTickets(tickets, now, s.riskWindow),
		BoardCounts: pipeline.BoardCounts(tickets),
		AtRisk:      atRisk,
		GeneratedAt: now.UTC(),
		WindowHours: s.riskWindow.Hours(),
	}

	if permissions.VisibilityScope(agent, permissions.ResourceLeads) == permissions.ScopeNone {
		return d, nil
	}
	leadOwner, err := ownerFilter(agent, permissions.ResourceLeads)
	if err != nil {
		return nil, err
	}
	leads, err := s.leads.ListWithFilter(ctx, repository.LeadFilter{Owner: leadOwner, Limit: boardLimit})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sales := insights.SummarizeLeads(leads)
	d.Sales = &sales

	referrals, err := s.referrals.ListWithFilter(ctx, repository.ReferralFilter{Owner: leadOwner, Limit: boardLimit})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	d.Referrals = insights.StageCounts(domain.ReferralStages, insights.ReferralStagesOf(referrals))
	d.Commissions = insights.CommissionTotals(referrals)

	s.logger.Debug("dashboard built",
		zap.String("agent_id", agent.ID),
		zap.Int("tickets", len(tickets)),
		zap.Int("leads", len(leads)))
	return d, nil
}
