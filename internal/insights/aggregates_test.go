package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crmdesk/crm-service/internal/domain"
)

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func deadline(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestConversionAndAverageTicket(t *testing.T) {
	leads := []domain.Lead{
		{Stage: domain.StageWon, Value: 1000},
		{Stage: domain.StageWon, Value: 3000},
		{Stage: domain.StageLost, Value: 500},
		{Stage: domain.StageNew, Value: 200},
	}
	assert.InDelta(t, 0.5, ConversionRate(leads), 1e-9)
	assert.InDelta(t, 2000, AverageTicket(leads), 1e-9)

	assert.Zero(t, ConversionRate(nil))
	assert.Zero(t, AverageTicket([]domain.Lead{{Stage: domain.StageNew, Value: 10}}))
}

func TestSummarizeLeads(t *testing.T) {
	s := SummarizeLeads([]domain.Lead{
		{Stage: domain.StageWon, Value: 100},
		{Stage: domain.StageProposal, Value: 40},
		{Stage: domain.StageProposal, Value: 60},
	})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Won)
	assert.Equal(t, 0, s.Lost)
	assert.Equal(t, 2, s.ByStage[domain.StageProposal])
	assert.InDelta(t, 100, s.ValueByStage[domain.StageProposal], 1e-9)
	assert.InDelta(t, 100, s.WonValue, 1e-9)
	assert.Contains(t, s.ByStage, domain.StageNegotiation)
}

func TestSLAAtRisk(t *testing.T) {
	tickets := []domain.Ticket{
		{ID: "soon", Status: domain.TicketStatusNew, SLAResolutionDeadline: deadline(2 * time.Hour)},
		{ID: "edge", Status: domain.TicketStatusAssigned, SLAResolutionDeadline: deadline(4 * time.Hour)},
		{ID: "later", Status: domain.TicketStatusNew, SLAResolutionDeadline: deadline(5 * time.Hour)},
		{ID: "done", Status: domain.TicketStatusResolved, SLAResolutionDeadline: deadline(time.Hour)},
		{ID: "past", Status: domain.TicketStatusNew, SLAResolutionDeadline: deadline(-time.Hour)},
		{ID: "none", Status: domain.TicketStatusNew},
	}
	risk := SLAAtRisk(tickets, now, DefaultRiskWindow)
	ids := []string{}
	for _, t := range risk {
		ids = append(ids, t.ID)
	}
	assert.Equal(t, []string{"soon", "edge"}, ids)

	breached := SLABreached(tickets, now)
	assert.Len(t, breached, 1)
	assert.Equal(t, "past", breached[0].ID)
}

func TestSummarizeTickets(t *testing.T) {
	s := SummarizeTickets([]domain.Ticket{
		{Status: domain.TicketStatusNew, Priority: domain.TicketPriorityP1, TicketType: domain.TicketTypeSupport, SLABreached: true},
		{Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityP2, TicketType: domain.TicketTypeSupport},
		{Status: domain.TicketStatusClosed, Priority: domain.TicketPriorityP2, TicketType: domain.TicketTypeCollection},
		{Status: domain.TicketStatusInProgress, Priority: domain.TicketPriorityP3, TicketType: domain.TicketTypeSales, SLAResolutionDeadline: deadline(time.Hour)},
	}, now, DefaultRiskWindow)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Open)
	assert.Equal(t, 2, s.Resolved)
	assert.Equal(t, 1, s.AtRisk)
	assert.Equal(t, 1, s.Breached)
	assert.Equal(t, 2, s.ByPriority[domain.TicketPriorityP2])
	assert.Equal(t, 2, s.ByType[domain.TicketTypeSupport])
	assert.InDelta(t, 0.5, s.ResolutionRate, 1e-9)

	empty := SummarizeTickets(nil, now, DefaultRiskWindow)
	assert.Zero(t, empty.ResolutionRate)
}

func TestCommissionTotals(t *testing.T) {
	totals := CommissionTotals([]domain.Referral{
		{CommissionStatus: domain.CommissionApproved, CommissionValue: 150},
		{CommissionStatus: domain.CommissionApproved, CommissionValue: 50},
		{CommissionStatus: domain.CommissionPaid, CommissionValue: 10},
	})
	assert.InDelta(t, 200, totals[domain.CommissionApproved], 1e-9)
	assert.InDelta(t, 10, totals[domain.CommissionPaid], 1e-9)
	assert.Zero(t, totals[domain.CommissionPending])
}
