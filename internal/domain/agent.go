package domain

import "time"

// AgentType is the role an internal user acts under.
type AgentType string

const (
	AgentTypeAdmin      AgentType = "admin"
	AgentTypeSupervisor AgentType = "supervisor"
	AgentTypeSupport    AgentType = "support"
	AgentTypeSales      AgentType = "sales"
	AgentTypeCollection AgentType = "collection"
)

// Valid reports whether t is one of the known roles.
func (t AgentType) Valid() bool {
	switch t {
	case AgentTypeAdmin, AgentTypeSupervisor, AgentTypeSupport, AgentTypeSales, AgentTypeCollection:
		return true
	}
	return false
}

// AgentPermissions holds per-agent grants layered over the role defaults.
// A false field means "no explicit grant", never "explicit deny".
type AgentPermissions struct {
	CanViewAllTickets  bool `json:"can_view_all_tickets,omitempty"`
	CanViewTeamTickets bool `json:"can_view_team_tickets,omitempty"`
	CanViewAllLeads    bool `json:"can_view_all_leads,omitempty"`
	CanViewTeamLeads   bool `json:"can_view_team_leads,omitempty"`
	CanAccessReports   bool `json:"can_access_reports,omitempty"`
	CanManageAgents    bool `json:"can_manage_agents,omitempty"`
	CanManageSettings  bool `json:"can_manage_settings,omitempty"`
}

// Agent models an internal CRM user (support, sales, collection or admin).
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	AgentType    AgentType
	TeamID       *string
	Permissions  *AgentPermissions
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
