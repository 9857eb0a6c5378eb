package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmdesk/crm-service/internal/api/http/handlers"
	"github.com/crmdesk/crm-service/internal/assistant"
	"github.com/crmdesk/crm-service/internal/auth"
	"github.com/crmdesk/crm-service/internal/cache"
	"github.com/crmdesk/crm-service/internal/config"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/observability"
	"github.com/crmdesk/crm-service/internal/portal"
	"github.com/crmdesk/crm-service/internal/repository/repotest"
	"github.com/crmdesk/crm-service/internal/service"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// sessionStore only serves sessions; code sign-in is covered in the portal package.
type sessionStore struct {
	sessions map[string]domain.PortalSession
}

func (s *sessionStore) SaveCode(context.Context, string, string, time.Duration) error { return nil }
func (s *sessionStore) LoadCode(context.Context, string) (string, int, error) {
	return "", 0, portal.ErrNotFound
}
func (s *sessionStore) IncrAttempts(context.Context, string) (int, error) { return 0, portal.ErrNotFound }
func (s *sessionStore) DeleteCode(context.Context, string) error          { return nil }
func (s *sessionStore) CountIssued(context.Context, string, time.Duration) (int, error) {
	return 1, nil
}
func (s *sessionStore) SaveSession(_ context.Context, session domain.PortalSession, _ time.Duration) error {
	s.sessions[session.ID] = session
	return nil
}
func (s *sessionStore) LoadSession(_ context.Context, id string) (*domain.PortalSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, portal.ErrNotFound
	}
	return &session, nil
}
func (s *sessionStore) DeleteSession(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	metrics *observability.Metrics
}

func agentFixture(id string, role domain.AgentType, hash string) domain.Agent {
	return domain.Agent{ID: id, Name: id, Email: id + "@crm.test", PasswordHash: hash, AgentType: role, Active: true}
}

func newTestServer(t *testing.T, ready error) *testServer {
	t.Helper()
	logger := zap.NewNop()
	hash, err := auth.HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)

	agents := repotest.NewAgents(
		agentFixture("admin", domain.AgentTypeAdmin, hash),
		agentFixture("support", domain.AgentTypeSupport, hash),
		agentFixture("seller", domain.AgentTypeSales, hash),
	)
	tickets := repotest.NewTickets()
	queues := repotest.NewQueues()
	leads := repotest.NewLeads()
	referrals := repotest.NewReferrals()
	activities := repotest.NewActivities()
	customers := repotest.NewCustomers([]domain.Contact{{ID: "c-1", Name: "Ana", Email: "ana@cliente.test"}}, nil)
	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager("router-test-secret", time.Hour)
	agentCache := cache.NewAgentCache(agents, 16, time.Minute)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets, QueueRepo: queues, AgentRepo: agents, Dispatcher: dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: tickets, AgentRepo: agents, QueueRepo: queues, TicketService: ticketService, Dispatcher: dispatcher,
	})
	pipelineService := service.NewPipelineService(service.PipelineDependencies{
		LeadRepo: leads, ReferralRepo: referrals, ActivityRepo: activities, Dispatcher: dispatcher,
	})
	proposalService := service.NewProposalService(service.ProposalDependencies{
		ProposalRepo: repotest.NewProposals(), LeadRepo: leads, PipelineService: pipelineService, Dispatcher: dispatcher,
	})
	activityService := service.NewActivityService(service.ActivityDependencies{
		ActivityRepo: activities, TicketRepo: tickets, LeadRepo: leads, ReferralRepo: referrals, Dispatcher: dispatcher,
	})
	notificationService := service.NewNotificationService(repotest.NewNotifications(), dispatcher, logger, config.NotificationConfig{})
	notificationService.RegisterHandlers()

	store := &sessionStore{sessions: map[string]domain.PortalSession{
		"sess-1": {ID: "sess-1", ContactID: "c-1", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	portalService := portal.NewService(store, customers, portal.LogSender{Logger: logger}, config.PortalConfig{}, bcrypt.MinCost, logger)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{Timeout: 5 * time.Second})
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("crm-service", "test", map[string]handlers.Pinger{
			"postgres": pingFunc(func(context.Context) error { return ready }),
		}),
		Auth:   handlers.NewAuthHandler(service.NewAuthService(agents, tokens, logger)),
		Agents: handlers.NewAgentsHandler(service.NewAgentService(agents, agentCache, bcrypt.MinCost, logger), service.NewSettingsService(repotest.NewSettings(), logger)),
		Tickets: handlers.NewTicketsHandler(ticketService, assignmentService, service.NewQueueService(queues, logger)),
		Pipeline: handlers.NewPipelineHandler(pipelineService, proposalService),
		Workspace: handlers.NewWorkspaceHandler(activityService, notificationService,
			service.NewReportService(tickets, leads, referrals, 0, logger)),
		Knowledge: handlers.NewKnowledgeHandler(service.NewKnowledgeService(repotest.NewKnowledge(), logger),
			service.NewCopilotService(ticketService, activities, assistant.New(config.AIConfig{}, logger), logger)),
		Portal: handlers.NewPortalHandler(portalService,
			service.NewCustomerPortalService(customers, tickets, ticketService, logger),
			service.NewIntakeService(auth.NewTokenManager("intake-secret", time.Hour), customers, ticketService, logger)),
		AuthMiddleware:   auth.NewAuthMiddleware(tokens, agentCache),
		PortalMiddleware: auth.PortalMiddleware(portalService),
	})
	return &testServer{app: app, tokens: tokens, metrics: metrics}
}

func (s *testServer) token(t *testing.T, agentID string) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(agentID, domain.SubjectTypeAgent, nil)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	envelope, _ := body["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func TestHealthProbes(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.do(t, "GET", "/health/live", "", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, "GET", "/health/ready", "", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, "ready", body["status"])

	down := newTestServer(t, errors.New("connection refused"))
	status, body = down.do(t, "GET", "/health/ready", "", nil)
	assert.Equal(t, 503, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.do(t, "POST", "/auth/login", "", map[string]string{"email": "support@crm.test", "password": "s3cret-pass"})
	require.Equal(t, 200, status)
	data := body["data"].(map[string]any)
	token := data["auth"].(map[string]any)["token"].(string)
	assert.NotContains(t, data["agent"], "password_hash")

	status, body = s.do(t, "GET", "/me", token, nil)
	require.Equal(t, 200, status)
	assert.Equal(t, "support", body["data"].(map[string]any)["id"])

	status, body = s.do(t, "POST", "/auth/login", "", map[string]string{"email": "support@crm.test", "password": "wrong"})
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = s.do(t, "POST", "/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, 400, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "email", details["email"])
	assert.Equal(t, "required", details["password"])
}

func TestAgentRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.do(t, "GET", "/tickets", "", nil)
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = s.do(t, "GET", "/tickets", "garbage", nil)
	assert.Equal(t, 401, status)
}

func TestModuleAndCapabilityGates(t *testing.T) {
	s := newTestServer(t, nil)
	seller := s.token(t, "seller")
	support := s.token(t, "support")
	admin := s.token(t, "admin")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"sales cannot open tickets", "GET", "/tickets", seller, 403},
		{"support cannot open leads", "GET", "/leads", support, 403},
		{"support cannot manage agents", "GET", "/agents", support, 403},
		{"support cannot read settings", "GET", "/settings", support, 403},
		{"support has no reports", "GET", "/reports/dashboard", support, 403},
		{"sales cannot open copilot", "POST", "/assistant/tickets/t-1/summary", seller, 403},
		{"admin reads settings", "GET", "/settings", admin, 200},
		{"admin lists agents", "GET", "/agents", admin, 200},
		{"sales sees the lead board", "GET", "/leads/board", seller, 200},
		{"support sees the ticket board", "GET", "/tickets/board", support, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := s.do(t, tc.method, tc.path, tc.token, nil)
			assert.Equal(t, tc.status, status)
			if tc.status == 403 {
				assert.Equal(t, "ACCESS_RESTRICTED", errorCode(body))
			}
		})
	}
}

func TestCreateTicketValidatesAndCreates(t *testing.T) {
	s := newTestServer(t, nil)
	support := s.token(t, "support")

	status, body := s.do(t, "POST", "/tickets", support, map[string]any{"title": "Sem sinal", "priority": "P9"})
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, "POST", "/tickets", support, map[string]any{"title": "Sem sinal", "priority": "P1"})
	require.Equal(t, 201, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "novo", data["status"])
	assert.Equal(t, "form", data["source"])
	assert.Equal(t, "P1", data["priority"])
}

func TestLeadBoardHasEveryStage(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.do(t, "GET", "/leads/board", s.token(t, "seller"), nil)
	require.Equal(t, 200, status)
	assert.Len(t, body["data"], len(domain.LeadStages))
}

func TestExportIsCSV(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest("GET", "/tickets/export.csv", nil)
	req.Header.Set("Authorization", "Bearer "+s.token(t, "support"))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
}

func TestPublicAndPortalRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, "GET", "/public/proposals/unknown", "", nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, _ = s.do(t, "GET", "/portal/me", "", nil)
	assert.Equal(t, 401, status)
	status, _ = s.do(t, "GET", "/portal/me", "expired", nil)
	assert.Equal(t, 401, status)

	status, body = s.do(t, "GET", "/portal/me", "sess-1", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, "Ana", body["data"].(map[string]any)["name"])

	status, body = s.do(t, "POST", "/portal/tickets", "sess-1", map[string]any{"title": "Boleto"})
	require.Equal(t, 201, status)
	assert.NotContains(t, body["data"], "agent_id")

	status, _ = s.do(t, "POST", "/portal/logout", "sess-1", nil)
	assert.Equal(t, 204, status)
	status, _ = s.do(t, "GET", "/portal/me", "sess-1", nil)
	assert.Equal(t, 401, status)

	// An agent token is not a portal session.
	status, _ = s.do(t, "GET", "/portal/me", s.token(t, "admin"), nil)
	assert.Equal(t, 401, status)
}

func TestWhatsAppIntakeFlow(t *testing.T) {
	s := newTestServer(t, nil)
	status, _ := s.do(t, "POST", "/intake/whatsapp/token", s.token(t, "support"), map[string]string{"phone": "5511900000000"})
	assert.Equal(t, 403, status)

	status, body := s.do(t, "POST", "/intake/whatsapp/token", s.token(t, "admin"), map[string]string{"phone": "+55 11 90000-0000"})
	require.Equal(t, 201, status)
	token := body["data"].(map[string]any)["token"].(string)

	status, body = s.do(t, "POST", "/intake/whatsapp", "", map[string]string{
		"phone": "5511900000000", "name": "Joana", "token": token, "message": "sem internet",
	})
	require.Equal(t, 201, status)
	assert.Equal(t, "novo", body["data"].(map[string]any)["status"])

	status, body = s.do(t, "POST", "/intake/whatsapp", "", map[string]string{"phone": "5511900000000", "token": "forged"})
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestErrorsAreCounted(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, "GET", "/tickets", "", nil)
	snap := s.metrics.Snapshot()
	var total int64
	for key, n := range snap.Errors {
		if key != "" {
			total += n
		}
	}
	assert.Equal(t, int64(1), total)
	assert.NotEmpty(t, snap.Requests)
}

func TestMalformedIDsAreClientErrors(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.token(t, "admin")
	seller := s.token(t, "seller")
	unknown := uuid.NewString()

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"ticket id", "GET", "/tickets/not-a-uuid", admin, nil, 404, "NOT_FOUND"},
		{"unknown ticket", "GET", "/tickets/" + unknown, admin, nil, 404, "NOT_FOUND"},
		{"status change", "POST", "/tickets/abc/status", admin, map[string]string{"status": "fechado"}, 404, "NOT_FOUND"},
		{"queue typo on drop", "POST", "/tickets/" + unknown + "/move", admin,
			map[string]string{"destination_droppable_id": "fila-errada"}, 404, "NOT_FOUND"},
		{"lead id", "GET", "/leads/abc", seller, nil, 404, "NOT_FOUND"},
		{"assignee id in body", "POST", "/tickets", admin, map[string]string{"title": "Sem sinal", "agent_id": "abc"}, 400, "VALIDATION_FAILED"},
		{"unknown assignee", "POST", "/tickets", admin, map[string]string{"title": "Sem sinal", "agent_id": unknown}, 404, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := s.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, errorCode(body))
		})
	}
	for key := range s.metrics.Snapshot().Errors {
		assert.NotContains(t, key, "INTERNAL_ERROR")
	}
}
