package dto

import (
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
)

// LeadCreateRequest payload.
type LeadCreateRequest struct {
	Kind     domain.LeadKind `json:"kind" validate:"omitempty,oneof=pf pj"`
	Name     string          `json:"name" validate:"required,max=160"`
	Company  *string         `json:"company"`
	Document *string         `json:"document"`
	Email    *string         `json:"email" validate:"omitempty,email"`
	Phone    *string         `json:"phone"`
	Value    float64         `json:"value" validate:"gte=0"`
	AgentID  *string         `json:"agent_id" validate:"omitempty,uuid"`
}

// StageRequest moves a lead or referral to a stage.
type StageRequest struct {
	Stage      string `json:"stage" validate:"required"`
	LostReason string `json:"lost_reason"`
}

// LeadResponse is the lead view.
type LeadResponse struct {
	ID           string                     `json:"id"`
	Kind         domain.LeadKind            `json:"kind"`
	Name         string                     `json:"name"`
	Company      *string                    `json:"company"`
	Document     *string                    `json:"document"`
	Email        *string                    `json:"email"`
	Phone        *string                    `json:"phone"`
	Stage        domain.Stage               `json:"stage"`
	StageHistory []domain.StageHistoryEntry `json:"stage_history"`
	Value        float64                    `json:"value"`
	AgentID      *string                    `json:"agent_id"`
	TeamID       *string                    `json:"team_id"`
	Concluded    bool                       `json:"concluded"`
	ConcludedAt  *time.Time                 `json:"concluded_at"`
	Lost         bool                       `json:"lost"`
	LostAt       *time.Time                 `json:"lost_at"`
	LostReason   *string                    `json:"lost_reason"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// LeadColumn is one lead board column.
type LeadColumn struct {
	Key   string         `json:"key"`
	Count int            `json:"count"`
	Items []LeadResponse `json:"items"`
}

// ReferralCreateRequest payload.
type ReferralCreateRequest struct {
	ReferrerName    string  `json:"referrer_name" validate:"required,max=160"`
	ReferrerContact *string `json:"referrer_contact"`
	ReferredName    string  `json:"referred_name" validate:"required,max=160"`
	ReferredContact *string `json:"referred_contact"`
	CommissionValue float64 `json:"commission_value" validate:"gte=0"`
	AgentID         *string `json:"agent_id" validate:"omitempty,uuid"`
}

// ReferralResponse is the referral view.
type ReferralResponse struct {
	ID               string                     `json:"id"`
	ReferrerName     string                     `json:"referrer_name"`
	ReferrerContact  *string                    `json:"referrer_contact"`
	ReferredName     string                     `json:"referred_name"`
	ReferredContact  *string                    `json:"referred_contact"`
	Stage            domain.Stage               `json:"stage"`
	StageHistory     []domain.StageHistoryEntry `json:"stage_history"`
	Status           domain.ReferralStatus      `json:"status"`
	ConvertedAt      *time.Time                 `json:"converted_at"`
	CommissionValue  float64                    `json:"commission_value"`
	CommissionStatus domain.CommissionStatus    `json:"commission_status"`
	AgentID          *string                    `json:"agent_id"`
	TeamID           *string                    `json:"team_id"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// ReferralColumn is one referral board column.
type ReferralColumn struct {
	Key   string             `json:"key"`
	Count int                `json:"count"`
	Items []ReferralResponse `json:"items"`
}

// ProposalCreateRequest payload.
type ProposalCreateRequest struct {
	LeadID      string  `json:"lead_id" validate:"required,uuid"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description"`
	Value       float64 `json:"value" validate:"gte=0"`
}

// ProposalRespondRequest is the customer's answer.
type ProposalRespondRequest struct {
	Accept *bool   `json:"accept" validate:"required"`
	Note   *string `json:"note" validate:"omitempty,max=1000"`
}

// ProposalResponse is the agent view of a proposal.
type ProposalResponse struct {
	ID           string                `json:"id"`
	LeadID       string                `json:"lead_id"`
	PublicToken  string                `json:"public_token,omitempty"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Value        float64               `json:"value"`
	Status       domain.ProposalStatus `json:"status"`
	ResponseNote *string               `json:"response_note"`
	RespondedAt  *time.Time            `json:"responded_at"`
	CreatedAt    time.Time             `json:"created_at"`
}

// PublicProposalResponse is what the public link shows.
type PublicProposalResponse struct {
	LeadName string           `json:"lead_name"`
	Proposal ProposalResponse `json:"proposal"`
}
