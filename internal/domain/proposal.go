package domain

import "time"

// ProposalStatus is the customer's answer to a commercial proposal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pendente"
	ProposalAccepted ProposalStatus = "aceita"
	ProposalRejected ProposalStatus = "recusada"
)

// Proposal is a quote sent to a lead through a public link.
type Proposal struct {
	ID           string
	LeadID       string
	PublicToken  string
	Title        string
	Description  string
	Value        float64
	Status       ProposalStatus
	ResponseNote *string
	RespondedAt  *time.Time
	CreatedBy    string
	CreatedAt    time.Time
}
