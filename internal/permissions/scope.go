package permissions

import "github.com/crmdesk/crm-service/internal/domain"

// Scope is how much of a resource an agent sees in list views.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeTeam
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeOwn:
		return "own"
	case ScopeTeam:
		return "team"
	case ScopeAll:
		return "all"
	}
	return "none"
}

// VisibilityScope collapses CanViewAll and CanViewTeam into a single scope.
// Team scope without a team degrades to own records.
func VisibilityScope(agent *domain.Agent, resource Resource) Scope {
	if !hasRole(agent) {
		return ScopeNone
	}
	if CanViewAll(agent, resource) {
		return ScopeAll
	}
	if CanViewTeam(agent, resource) && agent.TeamID != nil {
		return ScopeTeam
	}
	return ScopeOwn
}

// CanSeeRecord applies the agent's scope to a single record's ownership.
func CanSeeRecord(agent *domain.Agent, resource Resource, ownerID, teamID *string) bool {
	switch VisibilityScope(agent, resource) {
	case ScopeAll:
		return true
	case ScopeTeam:
		if teamID != nil && *teamID == *agent.TeamID {
			return true
		}
		return ownerID != nil && *ownerID == agent.ID
	case ScopeOwn:
		return ownerID != nil && *ownerID == agent.ID
	}
	return false
}

// ticketTypeModules names the module that owns each ticket type.
var ticketTypeModules = []struct {
	ticketType domain.TicketType
	module     Module
}{
	{domain.TicketTypeSupport, ModuleSupport},
	{domain.TicketTypeCollection, ModuleCollection},
	{domain.TicketTypeSales, ModuleSales},
}

// CanAccessTicketType reports whether the agent's modules cover tickets of
// type tt. Unknown types are never accessible.
func CanAccessTicketType(agent *domain.Agent, tt domain.TicketType) bool {
	for _, entry := range ticketTypeModules {
		if entry.ticketType == tt {
			return CanAccessModule(agent, entry.module)
		}
	}
	return false
}

// TicketTypes lists the ticket types the agent may work with, support first.
func TicketTypes(agent *domain.Agent) []domain.TicketType {
	var out []domain.TicketType
	for _, entry := range ticketTypeModules {
		if CanAccessModule(agent, entry.module) {
			out = append(out, entry.ticketType)
		}
	}
	return out
}
