package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmdesk/crm-service/internal/auth"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/repository/repotest"
)

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(id string) { r.ids = append(r.ids, id) }

func newAgentFixture() (*AgentService, *repotest.Agents, *recordingInvalidator) {
	repo := repotest.NewAgents(*admin, *supportA, *seller)
	inv := &recordingInvalidator{}
	return NewAgentService(repo, inv, bcrypt.MinCost, nil), repo, inv
}

func TestAgentCreate(t *testing.T) {
	svc, repo, _ := newAgentFixture()
	ctx := context.Background()

	agent, err := svc.Create(ctx, admin, AgentCreateInput{
		Name: " Carla ", Email: " Carla@CRM.test ", Password: "initial-pass", AgentType: domain.AgentTypeCollection, TeamID: ptr("c1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Carla", agent.Name)
	assert.Equal(t, "carla@crm.test", agent.Email)
	assert.True(t, agent.Active)
	assert.NoError(t, auth.ComparePassword(agent.PasswordHash, "initial-pass"))

	stored, err := repo.GetByEmail(ctx, "carla@crm.test")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, stored.ID)

	_, err = svc.Create(ctx, admin, AgentCreateInput{Name: "Dup", Email: "CARLA@crm.test", Password: "x", AgentType: domain.AgentTypeSales})
	requireCode(t, err, "CONFLICT")

	_, err = svc.Create(ctx, admin, AgentCreateInput{Name: "Bad", Email: "bad@crm.test", Password: "x", AgentType: "intern"})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.Create(ctx, supportA, AgentCreateInput{Name: "No", Email: "no@crm.test", Password: "x", AgentType: domain.AgentTypeSales})
	requireCode(t, err, "ACCESS_RESTRICTED")

	granted := newAgent("lead-support", domain.AgentTypeSupport, "t1")
	granted.Permissions = &domain.AgentPermissions{CanManageAgents: true}
	_, err = svc.Create(ctx, granted, AgentCreateInput{Name: "Ok", Email: "ok@crm.test", Password: "x", AgentType: domain.AgentTypeSupport})
	require.NoError(t, err)
}

func TestAgentUpdate(t *testing.T) {
	svc, repo, inv := newAgentFixture()
	ctx := context.Background()

	role := domain.AgentTypeSupervisor
	updated, err := svc.Update(ctx, admin, "support-a", AgentUpdateInput{AgentType: &role, ClearTeam: true, Password: ptr("rotated")})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentTypeSupervisor, updated.AgentType)
	assert.Nil(t, updated.TeamID)
	assert.NoError(t, auth.ComparePassword(updated.PasswordHash, "rotated"))
	assert.Equal(t, []string{"support-a"}, inv.ids)

	off := false
	updated, err = svc.Update(ctx, admin, "seller", AgentUpdateInput{Active: &off})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	stored, err := repo.GetByID(ctx, "seller")
	require.NoError(t, err)
	assert.False(t, stored.Active)

	_, err = svc.Update(ctx, admin, "admin", AgentUpdateInput{Active: &off})
	requireCode(t, err, "CONFLICT")

	bad := domain.AgentType("root")
	_, err = svc.Update(ctx, admin, "seller", AgentUpdateInput{AgentType: &bad})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.Update(ctx, admin, "ghost", AgentUpdateInput{})
	requireCode(t, err, "NOT_FOUND")

	_, err = svc.Update(ctx, seller, "seller", AgentUpdateInput{Name: ptr("me")})
	requireCode(t, err, "ACCESS_RESTRICTED")

	assert.Equal(t, []string{"support-a", "seller"}, inv.ids)
}

func TestAgentList(t *testing.T) {
	svc, _, _ := newAgentFixture()

	all, err := svc.List(context.Background(), seller, AgentListFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	support, err := svc.List(context.Background(), seller, AgentListFilters{AgentTypes: []domain.AgentType{domain.AgentTypeSupport}})
	require.NoError(t, err)
	require.Len(t, support, 1)
	assert.Equal(t, "support-a", support[0].ID)

	_, err = svc.List(context.Background(), nil, AgentListFilters{})
	requireCode(t, err, "UNAUTHORIZED")
}

func TestSettingsService(t *testing.T) {
	svc := NewSettingsService(repotest.NewSettings(), nil)
	ctx := context.Background()

	doc, err := svc.Get(ctx, seller)
	require.NoError(t, err)
	assert.Empty(t, doc.Values)

	_, err = svc.Put(ctx, supervisor, map[string]any{"sla_hours": 4})
	requireCode(t, err, "ACCESS_RESTRICTED")

	_, err = svc.Put(ctx, admin, nil)
	requireCode(t, err, "VALIDATION_FAILED")

	doc, err = svc.Put(ctx, admin, map[string]any{"company": "Fibra Net"})
	require.NoError(t, err)
	assert.Equal(t, "Fibra Net", doc.Values["company"])
	assert.Equal(t, "admin", *doc.UpdatedBy)
}

func TestQueueService(t *testing.T) {
	svc := NewQueueService(repotest.NewQueues(domain.Queue{ID: "q-old", Name: "Antiga", Active: false}), nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, admin, QueueCreateInput{Name: " Financeiro ", TeamID: ptr("t2")})
	require.NoError(t, err)
	assert.Equal(t, "Financeiro", q.Name)
	assert.Equal(t, domain.TicketTypeSupport, q.TicketType)
	assert.True(t, q.Active)

	_, err = svc.Create(ctx, admin, QueueCreateInput{Name: " "})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = svc.Create(ctx, admin, QueueCreateInput{Name: "x", TicketType: "hardware"})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = svc.Create(ctx, supportA, QueueCreateInput{Name: "x"})
	requireCode(t, err, "ACCESS_RESTRICTED")

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
