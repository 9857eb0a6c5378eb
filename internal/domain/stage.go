package domain

import (
	"strings"
	"time"
)

// Stage is a pipeline column shared by leads and referrals.
type Stage string

const (
	StageNew         Stage = "novo"
	StageContact     Stage = "contato"
	StageQualified   Stage = "qualificado"
	StageProposal    Stage = "proposta"
	StageNegotiation Stage = "negociacao"
	StageWon         Stage = "fechado_ganho"
	StageLost        Stage = "fechado_perdido"
)

// LeadStages lists the lead pipeline columns in board order.
var LeadStages = []Stage{
	StageNew, StageContact, StageQualified, StageProposal, StageNegotiation, StageWon, StageLost,
}

// ReferralStages lists the referral pipeline columns in board order.
var ReferralStages = []Stage{
	StageNew, StageContact, StageQualified, StageProposal, StageWon, StageLost,
}

// ParseStage returns the stage named raw if it belongs to allowed.
func ParseStage(raw string, allowed []Stage) (Stage, bool) {
	candidate := Stage(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range allowed {
		if s == candidate {
			return s, true
		}
	}
	return "", false
}

// IsClosed reports whether the stage is one of the two terminal columns.
func (s Stage) IsClosed() bool {
	return s == StageWon || s == StageLost
}

// StageHistoryEntry is one element of the inline, append-only stage log.
type StageHistoryEntry struct {
	From      Stage     `json:"from"`
	To        Stage     `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy string    `json:"changed_by,omitempty"`
}
