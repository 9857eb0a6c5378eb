package dto

import (
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/insights"
)

// DashboardResponse is the reports dashboard.
type DashboardResponse struct {
	Tickets     insights.TicketSummary              `json:"tickets"`
	BoardCounts map[domain.TicketStatus]int         `json:"board_counts"`
	AtRisk      []TicketResponse                    `json:"at_risk"`
	Sales       *insights.SalesSummary              `json:"sales,omitempty"`
	Referrals   map[domain.Stage]int                `json:"referrals"`
	Commissions map[domain.CommissionStatus]float64 `json:"commissions"`
	WindowHours float64                             `json:"sla_risk_window_hours"`
	GeneratedAt time.Time                           `json:"generated_at"`
}
