package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/repository/repotest"
)

func newProposalFixture(t *testing.T, leads ...domain.Lead) (*ProposalService, *pipelineFixture) {
	t.Helper()
	f := newPipelineFixture(t, leads, nil)
	svc := NewProposalService(ProposalDependencies{
		ProposalRepo:    repotest.NewProposals(),
		LeadRepo:        f.leads,
		PipelineService: f.svc,
		Dispatcher:      f.dispatcher,
	})
	svc.now = fixedNow
	n := 0
	svc.newToken = func() (string, error) {
		n++
		return fmt.Sprintf("tok-%d", n), nil
	}
	return svc, f
}

func TestProposalAcceptWinsLead(t *testing.T) {
	svc, f := newProposalFixture(t, seedLead("l-1", domain.StageProposal, "seller", "s1"))
	ctx := context.Background()

	p, err := svc.Create(ctx, seller, ProposalCreateInput{LeadID: "l-1", Title: " Plano 500MB ", Value: 129.9})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", p.PublicToken)
	assert.Equal(t, domain.ProposalPending, p.Status)
	assert.Equal(t, "Plano 500MB", p.Title)

	pub, err := svc.Public(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "Lead l-1", pub.LeadName)

	answered, err := svc.Respond(ctx, "tok-1", true, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalAccepted, answered.Status)
	assert.Equal(t, now, *answered.RespondedAt)

	lead, err := f.leads.GetByID(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageWon, lead.Stage)
	assert.True(t, lead.Concluded)
	require.Len(t, lead.StageHistory, 1)
	assert.Equal(t, "seller", lead.StageHistory[0].ChangedBy)

	assert.Equal(t, []events.EventType{events.EventLeadStageChanged, events.EventProposalResponded}, eventTypes(*f.seen))

	var kinds []domain.NotificationType
	for _, n := range f.notifications.All() {
		assert.Equal(t, "seller", n.AgentID)
		kinds = append(kinds, n.Type)
	}
	assert.Contains(t, kinds, domain.NotificationProposalResponse)

	_, err = svc.Respond(ctx, "tok-1", false, nil)
	requireCode(t, err, "CONFLICT")
}

func TestProposalRejectLosesLeadWithNote(t *testing.T) {
	svc, f := newProposalFixture(t, seedLead("l-1", domain.StageNegotiation, "seller", "s1"))
	ctx := context.Background()

	_, err := svc.Create(ctx, seller, ProposalCreateInput{LeadID: "l-1", Title: "Plano"})
	require.NoError(t, err)

	answered, err := svc.Respond(ctx, "tok-1", false, ptr(" caro demais "))
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalRejected, answered.Status)
	assert.Equal(t, "caro demais", *answered.ResponseNote)

	lead, err := f.leads.GetByID(ctx, "l-1")
	require.NoError(t, err)
	assert.True(t, lead.Lost)
	assert.Equal(t, "caro demais", *lead.LostReason)
}

func TestProposalRejections(t *testing.T) {
	svc, _ := newProposalFixture(t,
		seedLead("l-1", domain.StageProposal, "seller", "s1"),
		seedLead("closed", domain.StageLost, "seller", "s1"),
	)
	ctx := context.Background()

	_, err := svc.Create(ctx, seller, ProposalCreateInput{LeadID: "l-1"})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = svc.Create(ctx, seller, ProposalCreateInput{LeadID: "l-1", Title: "x", Value: -5})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = svc.Create(ctx, seller, ProposalCreateInput{LeadID: "closed", Title: "x"})
	requireCode(t, err, "CONFLICT")
	_, err = svc.Create(ctx, loneSeller, ProposalCreateInput{LeadID: "l-1", Title: "x"})
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.Public(ctx, "")
	requireCode(t, err, "NOT_FOUND")
	_, err = svc.Public(ctx, "nope")
	requireCode(t, err, "NOT_FOUND")
	_, err = svc.Respond(ctx, "nope", true, nil)
	requireCode(t, err, "NOT_FOUND")

	list, err := svc.ListByLead(ctx, seller, "l-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
