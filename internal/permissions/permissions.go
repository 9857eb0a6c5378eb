// Package permissions decides what an agent may see and do. Every check fails
// closed: a nil agent, an empty role or an unknown role never grants access.
package permissions

import (
	"github.com/crmdesk/crm-service/internal/domain"
)

// Module identifies a top-level area of the application.
type Module string

const (
	ModuleSupport       Module = "support"
	ModuleSales         Module = "sales"
	ModuleCollection    Module = "collection"
	ModuleReferrals     Module = "referrals"
	ModuleKnowledgeBase Module = "knowledge_base"
	ModuleReports       Module = "reports"
	ModuleCopilot       Module = "copilot"
	ModuleAgents        Module = "agents"
	ModuleConfig        Module = "config"
)

// Resource is a record family with a visibility scope.
type Resource string

const (
	ResourceTickets Resource = "tickets"
	ResourceLeads   Resource = "leads"
)

// Capabilities is the static default for one role.
type Capabilities struct {
	Modules       []Module
	ViewAll       map[Resource]bool
	ViewTeam      map[Resource]bool
	AccessReports bool
}

// HasModule reports whether the module is in the allow-list.
func (c Capabilities) HasModule(m Module) bool {
	for _, candidate := range c.Modules {
		if candidate == m {
			return true
		}
	}
	return false
}

// roleTable holds defaults for non-admin roles. Admin short-circuits every
// check and so has no entry. No role manages agents or settings by default.
var roleTable = map[domain.AgentType]Capabilities{
	domain.AgentTypeSupervisor: {
		Modules: []Module{
			ModuleSupport, ModuleSales, ModuleCollection, ModuleReferrals,
			ModuleKnowledgeBase, ModuleReports, ModuleCopilot,
		},
		ViewAll:       map[Resource]bool{ResourceTickets: true, ResourceLeads: true},
		ViewTeam:      map[Resource]bool{ResourceTickets: true, ResourceLeads: true},
		AccessReports: true,
	},
	domain.AgentTypeSupport: {
		Modules:  []Module{ModuleSupport, ModuleKnowledgeBase, ModuleCopilot},
		ViewTeam: map[Resource]bool{ResourceTickets: true},
	},
	domain.AgentTypeSales: {
		Modules:  []Module{ModuleSales},
		ViewTeam: map[Resource]bool{ResourceLeads: true},
	},
	domain.AgentTypeCollection: {
		Modules:  []Module{ModuleCollection, ModuleCopilot},
		ViewTeam: map[Resource]bool{ResourceTickets: true},
	},
}

// RoleDefaults returns the static capabilities for a role.
func RoleDefaults(role domain.AgentType) (Capabilities, bool) {
	caps, ok := roleTable[role]
	return caps, ok
}

func isAdmin(agent *domain.Agent) bool {
	return agent != nil && agent.AgentType == domain.AgentTypeAdmin
}

func hasRole(agent *domain.Agent) bool {
	return agent != nil && agent.AgentType != ""
}

func overrides(agent *domain.Agent) domain.AgentPermissions {
	if agent == nil || agent.Permissions == nil {
		return domain.AgentPermissions{}
	}
	return *agent.Permissions
}

// CanAccessModule reports whether the agent's role allows the module.
func CanAccessModule(agent *domain.Agent, module Module) bool {
	if !hasRole(agent) {
		return false
	}
	if isAdmin(agent) {
		return true
	}
	caps, ok := roleTable[agent.AgentType]
	return ok && caps.HasModule(module)
}

// CanViewAll reports whether the agent sees every record of the resource.
func CanViewAll(agent *domain.Agent, resource Resource) bool {
	if !hasRole(agent) {
		return false
	}
	if isAdmin(agent) {
		return true
	}
	perms := overrides(agent)
	switch resource {
	case ResourceTickets:
		if perms.CanViewAllTickets {
			return true
		}
	case ResourceLeads:
		if perms.CanViewAllLeads {
			return true
		}
	default:
		return false
	}
	caps, ok := roleTable[agent.AgentType]
	return ok && caps.ViewAll[resource]
}

// CanViewTeam reports whether the agent sees the records of their team.
func CanViewTeam(agent *domain.Agent, resource Resource) bool {
	if !hasRole(agent) {
		return false
	}
	if isAdmin(agent) {
		return true
	}
	perms := overrides(agent)
	switch resource {
	case ResourceTickets:
		if perms.CanViewTeamTickets {
			return true
		}
	case ResourceLeads:
		if perms.CanViewTeamLeads {
			return true
		}
	default:
		return false
	}
	caps, ok := roleTable[agent.AgentType]
	return ok && caps.ViewTeam[resource]
}

// CanAccessReports reports whether dashboards and reports are visible.
func CanAccessReports(agent *domain.Agent) bool {
	if !hasRole(agent) {
		return false
	}
	if isAdmin(agent) || overrides(agent).CanAccessReports {
		return true
	}
	caps, ok := roleTable[agent.AgentType]
	return ok && caps.AccessReports
}

// CanManageAgents has no role default: only admins or an explicit grant.
func CanManageAgents(agent *domain.Agent) bool {
	if !hasRole(agent) {
		return false
	}
	return isAdmin(agent) || overrides(agent).CanManageAgents
}

// CanManageSettings has no role default: only admins or an explicit grant.
func CanManageSettings(agent *domain.Agent) bool {
	if !hasRole(agent) {
		return false
	}
	return isAdmin(agent) || overrides(agent).CanManageSettings
}
