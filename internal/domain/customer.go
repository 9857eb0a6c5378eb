package domain

import "time"

// Contact is an end customer who may sign in to the portal.
type Contact struct {
	ID        string
	Name      string
	Email     string
	Phone     *string
	CreatedAt time.Time
}

// ContractStatus tracks billing standing for collections.
type ContractStatus string

const (
	ContractActive    ContractStatus = "ativo"
	ContractOverdue   ContractStatus = "inadimplente"
	ContractCancelled ContractStatus = "cancelado"
)

// Contract is a customer's service agreement shown in the portal.
type Contract struct {
	ID           string
	Number       string
	ContactID    string
	Status       ContractStatus
	MonthlyValue float64
	DueDay       int
	CreatedAt    time.Time
}
