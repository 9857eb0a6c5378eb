package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/crm-service/internal/api/http/handlers"
	"github.com/crmdesk/crm-service/internal/auth"
	"github.com/crmdesk/crm-service/internal/permissions"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health           *handlers.HealthHandler
	Auth             *handlers.AuthHandler
	Agents           *handlers.AgentsHandler
	Tickets          *handlers.TicketsHandler
	Pipeline         *handlers.PipelineHandler
	Workspace        *handlers.WorkspaceHandler
	Knowledge        *handlers.KnowledgeHandler
	Portal           *handlers.PortalHandler
	AuthMiddleware   *auth.AuthMiddleware
	PortalMiddleware fiber.Handler
}

var ticketModules = []permissions.Module{permissions.ModuleSupport, permissions.ModuleCollection}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Public surfaces.
	app.Post("/auth/login", cfg.Auth.Login)
	app.Get("/public/proposals/:token", cfg.Pipeline.PublicProposal)
	app.Post("/public/proposals/:token/respond", cfg.Pipeline.RespondProposal)
	app.Post("/intake/whatsapp", cfg.Portal.WhatsApp)

	portalGroup := app.Group("/portal")
	portalGroup.Post("/auth/request", cfg.Portal.RequestCode)
	portalGroup.Post("/auth/verify", cfg.Portal.VerifyCode)
	session := portalGroup.Group("", cfg.PortalMiddleware, auth.RequirePortal())
	session.Get("/me", cfg.Portal.Me)
	session.Get("/tickets", cfg.Portal.Tickets)
	session.Post("/tickets", cfg.Portal.CreateTicket)
	session.Get("/contracts", cfg.Portal.Contracts)
	session.Post("/logout", cfg.Portal.Logout)

	// Agent surfaces.
	agent := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	agent.Get("/me", cfg.Auth.Me)
	agent.Get("/me/menu", cfg.Auth.Menu)

	manageAgents := auth.RequireCapability("manage_agents", permissions.CanManageAgents)
	agent.Get("/agents", manageAgents, cfg.Agents.ListAgents)
	agent.Post("/agents", manageAgents, cfg.Agents.CreateAgent)
	agent.Patch("/agents/:id", manageAgents, cfg.Agents.UpdateAgent)

	manageSettings := auth.RequireCapability("manage_settings", permissions.CanManageSettings)
	agent.Get("/settings", manageSettings, cfg.Agents.GetSettings)
	agent.Put("/settings", manageSettings, cfg.Agents.PutSettings)
	agent.Post("/intake/whatsapp/token", manageSettings, cfg.Portal.WhatsAppToken)

	tickets := agent.Group("/tickets", auth.RequireAnyModule(ticketModules...))
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/board", cfg.Tickets.Board)
	tickets.Get("/export.csv", cfg.Tickets.Export)
	tickets.Post("/assign-to-me", cfg.Tickets.AssignToMe)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Post("/:id/move", cfg.Tickets.Move)

	queues := agent.Group("/queues", auth.RequireAnyModule(ticketModules...))
	queues.Get("", cfg.Tickets.ListQueues)
	queues.Post("", manageSettings, cfg.Tickets.CreateQueue)
	queues.Get("/board", cfg.Tickets.QueueBoard)

	leads := agent.Group("/leads", auth.RequireModule(permissions.ModuleSales))
	leads.Get("", cfg.Pipeline.ListLeads)
	leads.Post("", cfg.Pipeline.CreateLead)
	leads.Get("/board", cfg.Pipeline.LeadBoard)
	leads.Get("/export.csv", cfg.Pipeline.ExportLeads)
	leads.Post("/move", cfg.Pipeline.DropLead)
	leads.Get("/:id", cfg.Pipeline.GetLead)
	leads.Get("/:id/proposals", cfg.Pipeline.LeadProposals)
	leads.Post("/:id/stage", cfg.Pipeline.MoveLead)

	agent.Post("/proposals", auth.RequireModule(permissions.ModuleSales), cfg.Pipeline.CreateProposal)

	referrals := agent.Group("/referrals", auth.RequireModule(permissions.ModuleReferrals))
	referrals.Get("", cfg.Pipeline.ListReferrals)
	referrals.Post("", cfg.Pipeline.CreateReferral)
	referrals.Get("/board", cfg.Pipeline.ReferralBoard)
	referrals.Post("/move", cfg.Pipeline.DropReferral)
	referrals.Post("/:id/stage", cfg.Pipeline.MoveReferral)

	activities := agent.Group("/activities")
	activities.Post("", cfg.Workspace.CreateActivity)
	activities.Get("/tasks", cfg.Workspace.Tasks)
	activities.Get("/timeline/:record_type/:record_id", cfg.Workspace.Timeline)
	activities.Post("/:id/complete", cfg.Workspace.CompleteTask)

	notifications := agent.Group("/notifications")
	notifications.Get("", cfg.Workspace.ListNotifications)
	notifications.Get("/unread-count", cfg.Workspace.UnreadCount)
	notifications.Post("/read-all", cfg.Workspace.MarkAllRead)
	notifications.Post("/:id/read", cfg.Workspace.MarkRead)

	agent.Get("/reports/dashboard", auth.RequireCapability("reports", permissions.CanAccessReports), cfg.Workspace.Dashboard)

	kb := agent.Group("/kb", auth.RequireModule(permissions.ModuleKnowledgeBase))
	kb.Get("/categories", cfg.Knowledge.ListCategories)
	kb.Post("/categories", cfg.Knowledge.CreateCategory)
	kb.Get("/articles", cfg.Knowledge.ListArticles)
	kb.Post("/articles", cfg.Knowledge.CreateArticle)
	kb.Get("/articles/:id", cfg.Knowledge.GetArticle)
	kb.Patch("/articles/:id", cfg.Knowledge.UpdateArticle)
	kb.Post("/articles/:id/feedback", cfg.Knowledge.Feedback)

	assistant := agent.Group("/assistant/tickets/:id", auth.RequireModule(permissions.ModuleCopilot))
	assistant.Post("/summary", cfg.Knowledge.Summarize)
	assistant.Post("/replies", cfg.Knowledge.Replies)
	assistant.Post("/classify", cfg.Knowledge.Classify)
}
