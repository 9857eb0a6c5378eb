package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/crm-service/internal/config"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/pipeline"
	"github.com/crmdesk/crm-service/internal/repository/repotest"
)

type pipelineFixture struct {
	svc           *PipelineService
	leads         *repotest.Leads
	referrals     *repotest.Referrals
	activities    *repotest.Activities
	notifications *repotest.Notifications
	seen          *[]events.Event
	dispatcher    events.Dispatcher
}

func newPipelineFixture(t *testing.T, leads []domain.Lead, referrals []domain.Referral) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		leads:         repotest.NewLeads(leads...),
		referrals:     repotest.NewReferrals(referrals...),
		activities:    repotest.NewActivities(),
		notifications: repotest.NewNotifications(),
		dispatcher:    events.NewInMemoryDispatcher(nil),
	}
	f.seen = recordEvents(f.dispatcher)
	NewNotificationService(f.notifications, f.dispatcher, nil, config.NotificationConfig{LinkBaseURL: "https://crm.test/"}).RegisterHandlers()
	f.svc = NewPipelineService(PipelineDependencies{
		LeadRepo:     f.leads,
		ReferralRepo: f.referrals,
		ActivityRepo: f.activities,
		Dispatcher:   f.dispatcher,
	})
	f.svc.now = fixedNow
	return f
}

func seedLead(id string, stage domain.Stage, agentID, teamID string) domain.Lead {
	l := domain.Lead{ID: id, Kind: domain.LeadKindPF, Name: "Lead " + id, Stage: stage, Value: 100}
	if agentID != "" {
		l.AgentID = ptr(agentID)
	}
	if teamID != "" {
		l.TeamID = ptr(teamID)
	}
	return l
}

func TestCreateLead(t *testing.T) {
	f := newPipelineFixture(t, nil, nil)
	ctx := context.Background()

	lead, err := f.svc.CreateLead(ctx, seller, LeadCreateInput{Name: " Padaria Sol ", Kind: domain.LeadKindPJ, Value: 1500, Company: ptr("Sol Ltda")})
	require.NoError(t, err)
	assert.Equal(t, "Padaria Sol", lead.Name)
	assert.Equal(t, domain.StageNew, lead.Stage)
	assert.Equal(t, "seller", *lead.AgentID)
	assert.Equal(t, "s1", *lead.TeamID)
	assert.Empty(t, lead.StageHistory)

	_, err = f.svc.CreateLead(ctx, seller, LeadCreateInput{Name: ""})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = f.svc.CreateLead(ctx, seller, LeadCreateInput{Name: "x", Kind: "pz"})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = f.svc.CreateLead(ctx, seller, LeadCreateInput{Name: "x", Value: -1})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestMoveLeadRecordsHistoryActivityAndEvent(t *testing.T) {
	f := newPipelineFixture(t, []domain.Lead{seedLead("l-1", domain.StageNew, "seller", "s1")}, nil)
	ctx := context.Background()

	lead, err := f.svc.MoveLead(ctx, supervisor, "l-1", "Qualificado", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StageQualified, lead.Stage)
	require.Len(t, lead.StageHistory, 1)
	last := lead.StageHistory[0]
	assert.Equal(t, domain.StageNew, last.From)
	assert.Equal(t, domain.StageQualified, last.To)
	assert.Equal(t, "sup", last.ChangedBy)
	assert.Equal(t, now, last.ChangedAt)

	timeline, err := f.activities.ListByRecord(ctx, domain.RecordLead, "l-1")
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, domain.ActivityStageChange, timeline[0].Type)
	assert.Equal(t, "novo → qualificado", timeline[0].Subject)
	assert.True(t, timeline[0].Completed)

	assert.Equal(t, []events.EventType{events.EventLeadStageChanged}, eventTypes(*f.seen))

	// The owner hears about a move someone else made.
	notes := f.notifications.All()
	require.Len(t, notes, 1)
	assert.Equal(t, "seller", notes[0].AgentID)
	assert.Equal(t, domain.NotificationLeadStage, notes[0].Type)
	assert.Equal(t, "https://crm.test/leads?id=l-1", *notes[0].Link)
}

func TestMoveLeadSameStageIsNoop(t *testing.T) {
	f := newPipelineFixture(t, []domain.Lead{seedLead("l-1", domain.StageContact, "seller", "s1")}, nil)

	lead, err := f.svc.MoveLead(context.Background(), seller, "l-1", "contato", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StageContact, lead.Stage)
	assert.Empty(t, lead.StageHistory)
	assert.Empty(t, *f.seen)
	assert.Empty(t, f.notifications.All())
}

func TestMoveLeadToLostKeepsReason(t *testing.T) {
	f := newPipelineFixture(t, []domain.Lead{seedLead("l-1", domain.StageNegotiation, "seller", "s1")}, nil)

	lead, err := f.svc.MoveLead(context.Background(), seller, "l-1", "fechado_perdido", "preço")
	require.NoError(t, err)
	assert.True(t, lead.Lost)
	require.NotNil(t, lead.LostReason)
	assert.Equal(t, "preço", *lead.LostReason)
	assert.False(t, lead.Concluded)
	// Own moves do not notify.
	assert.Empty(t, f.notifications.All())
}

func TestMoveLeadRejections(t *testing.T) {
	f := newPipelineFixture(t, []domain.Lead{seedLead("l-1", domain.StageNew, "seller", "s1")}, nil)
	ctx := context.Background()

	_, err := f.svc.MoveLead(ctx, seller, "l-1", "arquivado", "")
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.MoveLead(ctx, loneSeller, "l-1", "contato", "")
	requireCode(t, err, "FORBIDDEN")

	_, err = f.svc.MoveLead(ctx, seller, "ghost", "contato", "")
	requireCode(t, err, "NOT_FOUND")

	stored, err := f.leads.GetByID(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageNew, stored.Stage)
	assert.Empty(t, stored.StageHistory)
}

func TestDropLead(t *testing.T) {
	f := newPipelineFixture(t, []domain.Lead{seedLead("l-1", domain.StageNew, "seller", "s1")}, nil)
	ctx := context.Background()

	lead, err := f.svc.DropLead(ctx, seller, pipeline.DropEvent{DraggableID: "l-1", DestinationID: "proposta", SourceID: "novo"})
	require.NoError(t, err)
	assert.Equal(t, domain.StageProposal, lead.Stage)

	lead, err = f.svc.DropLead(ctx, seller, pipeline.DropEvent{DraggableID: "l-1", DestinationID: "proposta", SourceID: "proposta"})
	require.NoError(t, err)
	assert.Len(t, lead.StageHistory, 1)

	_, err = f.svc.DropLead(ctx, seller, pipeline.DropEvent{DraggableID: "l-1"})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestLeadBoardAndScope(t *testing.T) {
	f := newPipelineFixture(t, []domain.Lead{
		seedLead("a", domain.StageNew, "seller", "s1"),
		seedLead("b", domain.StageWon, "other", "s1"),
		seedLead("c", domain.StageNew, "other", "s2"),
	}, nil)
	ctx := context.Background()

	board, err := f.svc.LeadBoard(ctx, seller, nil)
	require.NoError(t, err)
	require.Len(t, board, len(domain.LeadStages))
	assert.Equal(t, 1, board[0].Count)
	assert.Equal(t, string(domain.StageWon), board[5].Key)
	assert.Equal(t, 1, board[5].Count)

	own, err := f.svc.ListLeads(ctx, loneSeller, LeadListFilters{})
	require.NoError(t, err)
	assert.Empty(t, own)

	_, err = f.svc.GetLead(ctx, seller, "c")
	requireCode(t, err, "FORBIDDEN")

	all, err := f.svc.ListLeads(ctx, admin, LeadListFilters{Stages: []domain.Stage{domain.StageNew}})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExportLeads(t *testing.T) {
	f := newPipelineFixture(t, []domain.Lead{seedLead("a", domain.StageNew, "seller", "s1")}, nil)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportLeads(context.Background(), seller, LeadListFilters{}, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestReferralLifecycle(t *testing.T) {
	f := newPipelineFixture(t, nil, nil)
	ctx := context.Background()

	ref, err := f.svc.CreateReferral(ctx, seller, ReferralCreateInput{ReferrerName: "Ana", ReferredName: "Bruno", CommissionValue: 50})
	require.NoError(t, err)
	assert.Equal(t, domain.StageNew, ref.Stage)
	assert.Equal(t, domain.ReferralStatusActive, ref.Status)
	assert.Equal(t, domain.CommissionPending, ref.CommissionStatus)

	ref, err = f.svc.MoveReferral(ctx, seller, ref.ID, "fechado_ganho")
	require.NoError(t, err)
	assert.Equal(t, domain.ReferralStatusConverted, ref.Status)
	assert.Equal(t, domain.CommissionApproved, ref.CommissionStatus)
	require.NotNil(t, ref.ConvertedAt)
	require.Len(t, ref.StageHistory, 1)

	assert.Equal(t, []events.EventType{events.EventReferralStageChanged}, eventTypes(*f.seen))
	timeline, err := f.activities.ListByRecord(ctx, domain.RecordReferral, ref.ID)
	require.NoError(t, err)
	assert.Len(t, timeline, 1)

	_, err = f.svc.MoveReferral(ctx, seller, ref.ID, "negociacao")
	requireCode(t, err, "VALIDATION_FAILED")

	board, err := f.svc.ReferralBoard(ctx, seller)
	require.NoError(t, err)
	require.Len(t, board, len(domain.ReferralStages))

	_, err = f.svc.DropReferral(ctx, loneSeller, pipeline.DropEvent{DraggableID: ref.ID, DestinationID: "contato"})
	requireCode(t, err, "FORBIDDEN")

	same, err := f.svc.DropReferral(ctx, seller, pipeline.DropEvent{DraggableID: ref.ID, DestinationID: "fechado_ganho", SourceID: "fechado_ganho"})
	require.NoError(t, err)
	assert.Len(t, same.StageHistory, 1)

	_, err = f.svc.CreateReferral(ctx, seller, ReferralCreateInput{ReferrerName: "Ana"})
	requireCode(t, err, "VALIDATION_FAILED")
}
