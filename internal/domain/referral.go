package domain

import "time"

// ReferralStatus tracks whether a referral became a customer.
type ReferralStatus string

const (
	ReferralStatusActive    ReferralStatus = "ativa"
	ReferralStatusConverted ReferralStatus = "convertido"
)

// CommissionStatus tracks the referrer's payout.
type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "pendente"
	CommissionApproved CommissionStatus = "aprovada"
	CommissionPaid     CommissionStatus = "paga"
)

// Referral is a customer indication moving through its own pipeline.
type Referral struct {
	ID               string
	ReferrerName     string
	ReferrerContact  *string
	ReferredName     string
	ReferredContact  *string
	Stage            Stage
	StageHistory     []StageHistoryEntry
	Status           ReferralStatus
	ConvertedAt      *time.Time
	CommissionValue  float64
	CommissionStatus CommissionStatus
	AgentID          *string
	TeamID           *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
