// Package insights computes dashboard figures from record sets that were
// already fetched and scoped. Nothing here touches storage.
package insights

import (
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
)

// DefaultRiskWindow is how close to its deadline an open ticket must be to count as at risk.
const DefaultRiskWindow = 4 * time.Hour

// ConversionRate is won leads over all leads, 0 for an empty set.
func ConversionRate(leads []domain.Lead) float64 {
	if len(leads) == 0 {
		return 0
	}
	won := 0
	for _, l := range leads {
		if l.Stage == domain.StageWon {
			won++
		}
	}
	return float64(won) / float64(len(leads))
}

// AverageTicket is the mean value of won leads, 0 when none were won.
func AverageTicket(leads []domain.Lead) float64 {
	var total float64
	won := 0
	for _, l := range leads {
		if l.Stage == domain.StageWon {
			total += l.Value
			won++
		}
	}
	if won == 0 {
		return 0
	}
	return total / float64(won)
}

// PipelineValue sums lead value per stage. Every known stage is present.
func PipelineValue(leads []domain.Lead) map[domain.Stage]float64 {
	out := make(map[domain.Stage]float64, len(domain.LeadStages))
	for _, s := range domain.LeadStages {
		out[s] = 0
	}
	for _, l := range leads {
		if _, ok := out[l.Stage]; ok {
			out[l.Stage] += l.Value
		}
	}
	return out
}

// StageCounts counts records per stage for the given stage list.
func StageCounts(stages []domain.Stage, of []domain.Stage) map[domain.Stage]int {
	out := make(map[domain.Stage]int, len(stages))
	for _, s := range stages {
		out[s] = 0
	}
	for _, s := range of {
		if _, ok := out[s]; ok {
			out[s]++
		}
	}
	return out
}

// LeadStagesOf projects leads to their stages.
func LeadStagesOf(leads []domain.Lead) []domain.Stage {
	out := make([]domain.Stage, len(leads))
	for i, l := range leads {
		out[i] = l.Stage
	}
	return out
}

// ReferralStagesOf projects referrals to their stages.
func ReferralStagesOf(referrals []domain.Referral) []domain.Stage {
	out := make([]domain.Stage, len(referrals))
	for i, r := range referrals {
		out[i] = r.Stage
	}
	return out
}

// IsAtRisk reports whether an open ticket's deadline falls within window after now.
func IsAtRisk(t domain.Ticket, now time.Time, window time.Duration) bool {
	if t.Status.IsTerminal() || t.SLAResolutionDeadline == nil {
		return false
	}
	d := *t.SLAResolutionDeadline
	return d.After(now) && !d.After(now.Add(window))
}

// IsBreached reports whether an open ticket is past its deadline or already flagged.
func IsBreached(t domain.Ticket, now time.Time) bool {
	if t.Status.IsTerminal() {
		return false
	}
	if t.SLABreached {
		return true
	}
	return t.SLAResolutionDeadline != nil && !t.SLAResolutionDeadline.After(now)
}

// SLAAtRisk returns open tickets whose deadline is within window.
func SLAAtRisk(tickets []domain.Ticket, now time.Time, window time.Duration) []domain.Ticket {
	out := []domain.Ticket{}
	for _, t := range tickets {
		if IsAtRisk(t, now, window) {
			out = append(out, t)
		}
	}
	return out
}

// SLABreached returns open tickets that missed their deadline.
func SLABreached(tickets []domain.Ticket, now time.Time) []domain.Ticket {
	out := []domain.Ticket{}
	for _, t := range tickets {
		if IsBreached(t, now) {
			out = append(out, t)
		}
	}
	return out
}

// TicketSummary is the support dashboard header.
type TicketSummary struct {
	Total          int                           `json:"total"`
	Open           int                           `json:"open"`
	Resolved       int                           `json:"resolved"`
	ByStatus       map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority     map[domain.TicketPriority]int `json:"by_priority"`
	ByType         map[domain.TicketType]int     `json:"by_type"`
	AtRisk         int                           `json:"sla_at_risk"`
	Breached       int                           `json:"sla_breached"`
	ResolutionRate float64                       `json:"resolution_rate"`
}

// SummarizeTickets reduces a ticket set to dashboard counters.
func SummarizeTickets(tickets []domain.Ticket, now time.Time, window time.Duration) TicketSummary {
	s := TicketSummary{
		Total:      len(tickets),
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
		ByType:     map[domain.TicketType]int{},
	}
	for _, t := range tickets {
		s.ByStatus[t.Status]++
		s.ByPriority[t.Priority]++
		s.ByType[t.TicketType]++
		if t.Status.IsTerminal() {
			s.Resolved++
		} else {
			s.Open++
		}
		if IsAtRisk(t, now, window) {
			s.AtRisk++
		}
		if IsBreached(t, now) {
			s.Breached++
		}
	}
	if s.Total > 0 {
		s.ResolutionRate = float64(s.Resolved) / float64(s.Total)
	}
	return s
}

// SalesSummary is the sales dashboard header.
type SalesSummary struct {
	Total          int                      `json:"total"`
	Won            int                      `json:"won"`
	Lost           int                      `json:"lost"`
	ConversionRate float64                  `json:"conversion_rate"`
	AverageTicket  float64                  `json:"average_ticket"`
	WonValue       float64                  `json:"won_value"`
	ByStage        map[domain.Stage]int     `json:"by_stage"`
	ValueByStage   map[domain.Stage]float64 `json:"value_by_stage"`
}

// SummarizeLeads reduces a lead set to dashboard counters.
func SummarizeLeads(leads []domain.Lead) SalesSummary {
	s := SalesSummary{
		Total:          len(leads),
		ConversionRate: ConversionRate(leads),
		AverageTicket:  AverageTicket(leads),
		ByStage:        StageCounts(domain.LeadStages, LeadStagesOf(leads)),
		ValueByStage:   PipelineValue(leads),
	}
	s.Won = s.ByStage[domain.StageWon]
	s.Lost = s.ByStage[domain.StageLost]
	s.WonValue = s.ValueByStage[domain.StageWon]
	return s
}

// CommissionTotals sums referral commission value per commission status.
func CommissionTotals(referrals []domain.Referral) map[domain.CommissionStatus]float64 {
	out := map[domain.CommissionStatus]float64{
		domain.CommissionPending:  0,
		domain.CommissionApproved: 0,
		domain.CommissionPaid:     0,
	}
	for _, r := range referrals {
		out[r.CommissionStatus] += r.CommissionValue
	}
	return out
}
