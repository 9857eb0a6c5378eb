package domain

import "time"

// LeadKind separates individual (pf) and company (pj) leads.
type LeadKind string

const (
	LeadKindPF LeadKind = "pf"
	LeadKindPJ LeadKind = "pj"
)

// Lead is a sales opportunity tracked through the pipeline.
// Concluded and Lost are independent flags; nothing prevents both being set.
type Lead struct {
	ID           string
	Kind         LeadKind
	Name         string
	Company      *string
	Document     *string
	Email        *string
	Phone        *string
	Stage        Stage
	StageHistory []StageHistoryEntry
	Value        float64
	AgentID      *string
	TeamID       *string
	Concluded    bool
	ConcludedAt  *time.Time
	Lost         bool
	LostAt       *time.Time
	LostReason   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
