package domain

import "time"

// SubjectType differentiates the kinds of bearer tokens the service issues.
type SubjectType string

const (
	SubjectTypeAgent  SubjectType = "AGENT"
	SubjectTypePortal SubjectType = "PORTAL"
	SubjectTypeIntake SubjectType = "INTAKE"
	SubjectTypeSystem SubjectType = "SYSTEM"
)

// Token represents issued authentication tokens metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// PortalSession is a customer's server-side portal session.
type PortalSession struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
