package permissions

import "github.com/crmdesk/crm-service/internal/domain"

// Requirement is a capability a menu entry needs beyond its module.
type Requirement string

const (
	RequireNone         Requirement = ""
	RequireReports      Requirement = "reports"
	RequireManageAgents Requirement = "manage_agents"
	RequireSettings     Requirement = "manage_settings"
)

// MenuItem is a navigation entry. Top-level entries are gated by Module,
// sub-items by Requires.
type MenuItem struct {
	Title    string      `json:"title"`
	Path     string      `json:"path,omitempty"`
	Module   Module      `json:"module,omitempty"`
	Requires Requirement `json:"requires,omitempty"`
	Items    []MenuItem  `json:"items,omitempty"`
}

// Satisfies reports whether the agent holds requirement r.
func Satisfies(agent *domain.Agent, r Requirement) bool {
	switch r {
	case RequireNone:
		return hasRole(agent)
	case RequireReports:
		return CanAccessReports(agent)
	case RequireManageAgents:
		return CanManageAgents(agent)
	case RequireSettings:
		return CanManageSettings(agent)
	}
	return false
}

// FilterMenuItems returns the entries the agent may see. Admins get the
// menu unchanged; a missing agent gets nothing.
func FilterMenuItems(agent *domain.Agent, items []MenuItem) []MenuItem {
	if isAdmin(agent) {
		return items
	}
	if !hasRole(agent) {
		return []MenuItem{}
	}
	out := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if item.Module != "" && !CanAccessModule(agent, item.Module) {
			continue
		}
		if item.Requires != RequireNone && !Satisfies(agent, item.Requires) {
			continue
		}
		if len(item.Items) > 0 {
			children := make([]MenuItem, 0, len(item.Items))
			for _, child := range item.Items {
				if child.Requires != RequireNone && !Satisfies(agent, child.Requires) {
					continue
				}
				children = append(children, child)
			}
			item.Items = children
		}
		out = append(out, item)
	}
	return out
}

// DefaultMenu is the application navigation served by GET /me/menu.
func DefaultMenu() []MenuItem {
	return []MenuItem{
		{Title: "Atendimento", Module: ModuleSupport, Items: []MenuItem{
			{Title: "Dashboard", Path: "/support/dashboard", Requires: RequireReports},
			{Title: "Fila", Path: "/support/queues"},
			{Title: "Tickets", Path: "/support/tickets"},
			{Title: "Agentes", Path: "/support/agents", Requires: RequireManageAgents},
			{Title: "Relatórios", Path: "/support/reports", Requires: RequireReports},
		}},
		{Title: "Vendas", Module: ModuleSales, Items: []MenuItem{
			{Title: "Dashboard", Path: "/sales/dashboard", Requires: RequireReports},
			{Title: "Pipeline", Path: "/sales/pipeline"},
			{Title: "Leads", Path: "/sales/leads"},
			{Title: "Agentes", Path: "/sales/agents", Requires: RequireManageAgents},
		}},
		{Title: "Cobrança", Module: ModuleCollection, Items: []MenuItem{
			{Title: "Fila", Path: "/collection/queue"},
			{Title: "Relatórios", Path: "/collection/reports", Requires: RequireReports},
		}},
		{Title: "Indicações", Module: ModuleReferrals, Items: []MenuItem{
			{Title: "Pipeline", Path: "/referrals/pipeline"},
		}},
		{Title: "Base de Conhecimento", Module: ModuleKnowledgeBase, Path: "/kb"},
		{Title: "Copiloto", Module: ModuleCopilot, Path: "/copilot"},
		{Title: "Relatórios", Module: ModuleReports, Path: "/reports", Requires: RequireReports},
		{Title: "Configurações", Module: ModuleConfig, Path: "/settings", Requires: RequireSettings},
	}
}
