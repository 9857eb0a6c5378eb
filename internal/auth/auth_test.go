package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/permissions"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

type agentMap map[string]*domain.Agent

func (m agentMap) Get(_ context.Context, id string) (*domain.Agent, error) {
	agent, ok := m[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return agent, nil
}

type sessionMap map[string]*domain.PortalSession

func (m sessionMap) Session(_ context.Context, id string) (*domain.PortalSession, error) {
	s, ok := m[id]
	if !ok {
		return nil, apperrors.NewUnauthorized("invalid session")
	}
	return s, nil
}

// errorHandler mirrors the API envelope closely enough to assert status codes.
func errorHandler(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
}

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	handlers = append(handlers, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	app.Get("/", handlers...)
	return app
}

func do(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	role := domain.AgentTypeSales
	token, expires, err := tm.GenerateToken("a-1", domain.SubjectTypeAgent, &role)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tm.ParseSubject(token, domain.SubjectTypeAgent)
	require.NoError(t, err)
	assert.Equal(t, "a-1", claims.SubjectID)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.AgentTypeSales, *claims.Role)
}

func TestParseSubjectRejectsOtherSubject(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, _, err := tm.GenerateToken("5511999990000", domain.SubjectTypeIntake, nil)
	require.NoError(t, err)

	_, err = tm.ParseSubject(token, domain.SubjectTypeAgent)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpiredAndForeignSecret(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, _, err := tm.GenerateToken("a-1", domain.SubjectTypeAgent, nil)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	other := NewTokenManager("other", time.Minute)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.Error(t, ComparePassword(hash, "wrong"))
	BurnCompare("anything")
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	agents := agentMap{
		"active":   {ID: "active", AgentType: domain.AgentTypeSupport, Active: true},
		"disabled": {ID: "disabled", AgentType: domain.AgentTypeSupport},
	}
	mw := NewAuthMiddleware(tm, agents)
	app := newApp(mw.Handle, RequireAgent())

	token := func(id string, subject domain.SubjectType) string {
		raw, _, err := tm.GenerateToken(id, subject, nil)
		require.NoError(t, err)
		return raw
	}

	assert.Equal(t, http.StatusNoContent, do(t, app, token("active", domain.SubjectTypeAgent)))
	assert.Equal(t, http.StatusUnauthorized, do(t, app, ""))
	assert.Equal(t, http.StatusUnauthorized, do(t, app, "garbage"))
	assert.Equal(t, http.StatusUnauthorized, do(t, app, token("disabled", domain.SubjectTypeAgent)))
	assert.Equal(t, http.StatusUnauthorized, do(t, app, token("ghost", domain.SubjectTypeAgent)))
	assert.Equal(t, http.StatusUnauthorized, do(t, app, token("active", domain.SubjectTypeIntake)))
}

func withAgent(agent *domain.Agent) fiber.Handler {
	return func(c *fiber.Ctx) error {
		WithAgent(c, agent)
		return c.Next()
	}
}

func TestRequireModule(t *testing.T) {
	sales := &domain.Agent{ID: "s", AgentType: domain.AgentTypeSales}
	assert.Equal(t, http.StatusNoContent, do(t, newApp(withAgent(sales), RequireModule(permissions.ModuleSales)), ""))
	assert.Equal(t, http.StatusForbidden, do(t, newApp(withAgent(sales), RequireModule(permissions.ModuleConfig)), ""))
	assert.Equal(t, http.StatusUnauthorized, do(t, newApp(RequireModule(permissions.ModuleSales)), ""))
	assert.Equal(t, http.StatusNoContent,
		do(t, newApp(withAgent(sales), RequireAnyModule(permissions.ModuleSupport, permissions.ModuleSales)), ""))
	assert.Equal(t, http.StatusForbidden,
		do(t, newApp(withAgent(sales), RequireAnyModule(permissions.ModuleSupport, permissions.ModuleCollection)), ""))
}

func TestRequireCapability(t *testing.T) {
	support := &domain.Agent{ID: "s", AgentType: domain.AgentTypeSupport}
	granted := &domain.Agent{ID: "g", AgentType: domain.AgentTypeSupport,
		Permissions: &domain.AgentPermissions{CanAccessReports: true}}

	gate := RequireCapability("reports", permissions.CanAccessReports)
	assert.Equal(t, http.StatusForbidden, do(t, newApp(withAgent(support), gate), ""))
	assert.Equal(t, http.StatusNoContent, do(t, newApp(withAgent(granted), gate), ""))
}

func TestPortalMiddleware(t *testing.T) {
	sessions := sessionMap{"sess-1": {ID: "sess-1", ContactID: "c-1"}}
	var contactID string
	app := newApp(PortalMiddleware(sessions), RequirePortal(), func(c *fiber.Ctx) error {
		s, ok := PortalSessionFromContext(c)
		if !ok {
			return errors.New("missing session")
		}
		contactID = s.ContactID
		return c.Next()
	})

	assert.Equal(t, http.StatusNoContent, do(t, app, "sess-1"))
	assert.Equal(t, "c-1", contactID)
	assert.Equal(t, http.StatusUnauthorized, do(t, app, "unknown"))
	assert.Equal(t, http.StatusUnauthorized, do(t, app, ""))
}
