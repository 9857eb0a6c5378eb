package service

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/pipeline"
	"github.com/crmdesk/crm-service/internal/repository/repotest"
)

type ticketFixture struct {
	svc       *TicketService
	assign    *AssignmentService
	tickets   *repotest.Tickets
	scheduler *recordingScheduler
	seen      *[]events.Event
}

func newTicketFixture(t *testing.T, seed ...domain.Ticket) *ticketFixture {
	t.Helper()
	tickets := repotest.NewTickets(seed...)
	queues := repotest.NewQueues(
		domain.Queue{ID: "q-billing", Name: "Billing", TicketType: domain.TicketTypeCollection, TeamID: ptr("t2"), Active: true},
		domain.Queue{ID: "q-support", Name: "N1", TicketType: domain.TicketTypeSupport, TeamID: ptr("t1"), Active: true},
		domain.Queue{ID: "q-old", Name: "Old", TicketType: domain.TicketTypeSupport, Active: false},
	)
	agents := repotest.NewAgents(*admin, *supervisor, *supportA, *supportB, *seller, *collector,
		domain.Agent{ID: "retired", AgentType: domain.AgentTypeSupport, Email: "r@crm.test"})
	d := events.NewInMemoryDispatcher(nil)
	seen := recordEvents(d)
	scheduler := &recordingScheduler{}

	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets, QueueRepo: queues, AgentRepo: agents, Scheduler: scheduler, Dispatcher: d,
	})
	svc.now = fixedNow
	assign := NewAssignmentService(AssignmentDependencies{
		TicketRepo:    tickets,
		AgentRepo:     agents,
		QueueRepo:     queues,
		TicketService: svc,
		Dispatcher:    d,
	})
	assign.now = fixedNow
	return &ticketFixture{svc: svc, assign: assign, tickets: tickets, scheduler: scheduler, seen: seen}
}

func seedTicket(id string, status domain.TicketStatus, agentID, teamID string) domain.Ticket {
	t := domain.Ticket{
		ID:          id,
		ExternalKey: "TK-" + id,
		Title:       "ticket " + id,
		Status:      status,
		Priority:    domain.TicketPriorityP3,
		TicketType:  domain.TicketTypeSupport,
		Source:      domain.TicketSourceForm,
		CreatedAt:   now.Add(-time.Hour),
		UpdatedAt:   now.Add(-time.Hour),
	}
	if agentID != "" {
		t.AgentID = ptr(agentID)
	}
	if teamID != "" {
		t.TeamID = ptr(teamID)
	}
	return t
}

func TestTicketCreateDefaults(t *testing.T) {
	f := newTicketFixture(t)

	ticket, err := f.svc.Create(context.Background(), supportA, TicketCreateInput{Title: "  Internet caiu  "})
	require.NoError(t, err)

	assert.Equal(t, "Internet caiu", ticket.Title)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, domain.TicketPriorityP3, ticket.Priority)
	assert.Equal(t, domain.TicketTypeSupport, ticket.TicketType)
	assert.Equal(t, domain.TicketSourceForm, ticket.Source)
	assert.Regexp(t, regexp.MustCompile(`^TK-20260310-[0-9A-F]{6}$`), ticket.ExternalKey)
	require.NotNil(t, ticket.SLAResolutionDeadline)
	assert.Equal(t, now.Add(24*time.Hour), *ticket.SLAResolutionDeadline)

	assert.Equal(t, []string{ticket.ID}, f.scheduler.scheduled)
	require.Len(t, *f.seen, 1)
	created := (*f.seen)[0]
	assert.Equal(t, events.EventTicketCreated, created.Type)
	assert.Equal(t, "support-a", *created.Actor.AgentID)
	payload := created.Payload.(events.TicketCreatedPayload)
	assert.Equal(t, ticket.ExternalKey, payload.ExternalKey)
}

func TestTicketCreateWithQueueAndAgent(t *testing.T) {
	f := newTicketFixture(t)
	deadline := now.Add(2 * time.Hour)

	ticket, err := f.svc.Create(context.Background(), admin, TicketCreateInput{
		Title:       "Boleto",
		Priority:    domain.TicketPriorityP1,
		TicketType:  domain.TicketTypeCollection,
		QueueID:     ptr("q-billing"),
		AgentID:     ptr("support-b"),
		SLADeadline: &deadline,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.Equal(t, "t2", *ticket.TeamID)
	assert.Equal(t, deadline, *ticket.SLAResolutionDeadline)
}

func TestTicketCreateValidation(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, admin, TicketCreateInput{Title: " "})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.Create(ctx, admin, TicketCreateInput{Title: "x", Priority: "P9"})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.Create(ctx, admin, TicketCreateInput{Title: "x", TicketType: "hardware"})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.Create(ctx, admin, TicketCreateInput{Title: "x", QueueID: ptr("missing")})
	requireCode(t, err, "NOT_FOUND")

	_, err = f.svc.Create(ctx, admin, TicketCreateInput{Title: "x", QueueID: ptr("q-old")})
	requireCode(t, err, "CONFLICT")

	_, err = f.svc.Create(ctx, nil, TicketCreateInput{Title: "x"})
	requireCode(t, err, "UNAUTHORIZED")

	assert.Empty(t, *f.seen)
}

func TestTicketListRespectsScope(t *testing.T) {
	f := newTicketFixture(t,
		seedTicket("mine", domain.TicketStatusNew, "support-a", ""),
		seedTicket("team", domain.TicketStatusNew, "someone", "t1"),
		seedTicket("other", domain.TicketStatusNew, "support-b", "t2"),
	)
	ctx := context.Background()

	ids := func(ts []domain.Ticket) []string {
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = t.ID
		}
		return out
	}

	got, err := f.svc.List(ctx, supportA, TicketListFilters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mine", "team"}, ids(got))

	got, err = f.svc.List(ctx, supervisor, TicketListFilters{})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = f.svc.List(ctx, seller, TicketListFilters{})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.svc.Get(ctx, supportA, "other")
	requireCode(t, err, "FORBIDDEN")
	_, err = f.svc.Get(ctx, supportA, "missing")
	requireCode(t, err, "NOT_FOUND")
}

func TestTicketUpdateStatus(t *testing.T) {
	f := newTicketFixture(t, seedTicket("t-1", domain.TicketStatusInProgress, "support-a", "t1"))
	ctx := context.Background()

	ticket, err := f.svc.UpdateStatus(ctx, supportA, "t-1", "resolved")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)
	assert.Equal(t, now, *ticket.ResolvedAt)

	require.Len(t, *f.seen, 1)
	p := (*f.seen)[0].Payload.(events.TicketStatusChangedPayload)
	assert.Equal(t, domain.TicketStatusInProgress, p.OldStatus)
	assert.Equal(t, domain.TicketStatusResolved, p.NewStatus)

	// Same status again is a no-op.
	again, err := f.svc.UpdateStatus(ctx, supportA, "t-1", "resolvido")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, again.Status)
	assert.Len(t, *f.seen, 1)

	// Reopening clears the terminal timestamps and re-arms the SLA timers.
	reopened, err := f.svc.UpdateStatus(ctx, supportA, "t-1", "novo")
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Equal(t, []string{"t-1"}, f.scheduler.scheduled)
}

func TestTicketUpdateStatusRejections(t *testing.T) {
	f := newTicketFixture(t, seedTicket("t-1", domain.TicketStatusNew, "support-b", "t2"))
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, supportA, "t-1", "pendente")
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.UpdateStatus(ctx, supportA, "t-1", "fechado")
	requireCode(t, err, "FORBIDDEN")

	_, err = f.svc.UpdateStatus(ctx, supportA, "nope", "fechado")
	requireCode(t, err, "NOT_FOUND")

	stored, err := f.tickets.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
}

func TestTicketBoardExcludesTerminal(t *testing.T) {
	f := newTicketFixture(t,
		seedTicket("a", domain.TicketStatusNew, "", ""),
		seedTicket("b", domain.TicketStatusResolved, "", ""),
		seedTicket("c", domain.TicketStatusInProgress, "", ""),
	)

	board, err := f.svc.Board(context.Background(), admin, TicketListFilters{})
	require.NoError(t, err)
	assert.Equal(t, map[domain.TicketStatus]int{
		domain.TicketStatusNew:             1,
		domain.TicketStatusAssigned:        0,
		domain.TicketStatusInProgress:      1,
		domain.TicketStatusWaitingCustomer: 0,
	}, board.Counts)
	require.Len(t, board.Columns, 4)
	assert.Equal(t, string(domain.TicketStatusNew), board.Columns[0].Key)
}

func TestTicketQueueBoard(t *testing.T) {
	a := seedTicket("a", domain.TicketStatusNew, "", "")
	a.QueueID = ptr("q-support")
	b := seedTicket("b", domain.TicketStatusNew, "", "")
	c := seedTicket("c", domain.TicketStatusNew, "", "")
	c.TicketType = domain.TicketTypeCollection
	c.QueueID = ptr("q-billing")
	f := newTicketFixture(t, a, b, c)

	support := domain.TicketTypeSupport
	columns, queues, err := f.svc.QueueBoard(context.Background(), admin, &support)
	require.NoError(t, err)
	require.Len(t, queues, 1)
	assert.Equal(t, "q-support", queues[0].ID)
	require.Len(t, columns, 2)
	assert.Equal(t, "q-support", columns[0].Key)
	assert.Equal(t, 1, columns[0].Count)
	assert.Equal(t, pipeline.Unqueued, columns[1].Key)
	assert.Equal(t, 1, columns[1].Count)
}

func TestTicketExportQuotesFields(t *testing.T) {
	tk := seedTicket("a", domain.TicketStatusNew, "", "")
	tk.Title = `Cliente disse "urgente", ligar`
	f := newTicketFixture(t, tk)

	var buf bytes.Buffer
	require.NoError(t, f.svc.Export(context.Background(), admin, TicketListFilters{}, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"Cliente disse ""urgente"", ligar"`)
}

func TestAssignRules(t *testing.T) {
	f := newTicketFixture(t,
		seedTicket("t-1", domain.TicketStatusNew, "", "t1"),
		seedTicket("t-2", domain.TicketStatusInProgress, "support-a", "t1"),
	)
	ctx := context.Background()

	ticket, err := f.assign.Assign(ctx, supervisor, "t-1", ptr("support-a"))
	require.NoError(t, err)
	assert.Equal(t, "support-a", *ticket.AgentID)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)

	require.Len(t, *f.seen, 1)
	p := (*f.seen)[0].Payload.(events.TicketAssignedPayload)
	assert.Nil(t, p.PreviousAgentID)
	assert.Equal(t, "support-a", *p.AgentID)

	// Reassigning to the same agent changes nothing.
	_, err = f.assign.Assign(ctx, supervisor, "t-1", ptr("support-a"))
	require.NoError(t, err)
	assert.Len(t, *f.seen, 1)

	_, err = f.assign.Assign(ctx, supervisor, "t-1", ptr("retired"))
	requireCode(t, err, "CONFLICT")

	_, err = f.assign.Assign(ctx, supervisor, "t-1", ptr("ghost"))
	requireCode(t, err, "NOT_FOUND")

	// Status is kept when an in-progress ticket changes hands, and unassigning
	// leaves it as is.
	ticket, err = f.assign.Assign(ctx, supervisor, "t-2", nil)
	require.NoError(t, err)
	assert.Nil(t, ticket.AgentID)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
}

func TestAssignOthersNeedsTeamScope(t *testing.T) {
	f := newTicketFixture(t, seedTicket("t-1", domain.TicketStatusNew, "seller", ""))

	_, err := f.assign.Assign(context.Background(), seller, "t-1", ptr("support-a"))
	requireCode(t, err, "FORBIDDEN")
}

func TestAssignToMeBulk(t *testing.T) {
	f := newTicketFixture(t,
		seedTicket("free", domain.TicketStatusNew, "", ""),
		seedTicket("team", domain.TicketStatusWaitingCustomer, "someone", "t1"),
		seedTicket("foreign", domain.TicketStatusNew, "support-b", "t2"),
	)

	result, err := f.assign.AssignToMe(context.Background(), supportA, []string{"free", "team", "foreign", "free", "missing"})
	require.NoError(t, err)

	require.Len(t, result.Updated, 2)
	for _, tk := range result.Updated {
		assert.Equal(t, "support-a", *tk.AgentID)
		assert.Equal(t, domain.TicketStatusAssigned, tk.Status)
	}
	assert.Contains(t, result.Failed, "foreign")
	assert.Contains(t, result.Failed, "missing")
	assert.Len(t, result.Failed, 2)

	free, err := f.tickets.GetByID(context.Background(), "free")
	require.NoError(t, err)
	assert.Equal(t, "t1", *free.TeamID)

	_, err = f.assign.AssignToMe(context.Background(), supportA, nil)
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestMoveBetweenQueuesAndStatuses(t *testing.T) {
	f := newTicketFixture(t, seedTicket("t-1", domain.TicketStatusNew, "", ""))
	ctx := context.Background()

	ticket, err := f.assign.Move(ctx, admin, "t-1", pipeline.DropEvent{DestinationID: "q-billing", SourceID: pipeline.Unqueued})
	require.NoError(t, err)
	assert.Equal(t, "q-billing", *ticket.QueueID)
	assert.Equal(t, "t2", *ticket.TeamID)
	moved := (*f.seen)[len(*f.seen)-1]
	assert.Equal(t, events.EventTicketMoved, moved.Type)
	assert.Equal(t, "q-billing", *moved.Payload.(events.TicketMovedPayload).ToQueueID)

	ticket, err = f.assign.Move(ctx, admin, "t-1", pipeline.DropEvent{DestinationID: "em_atendimento", SourceID: "novo"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

	ticket, err = f.assign.Move(ctx, admin, "t-1", pipeline.DropEvent{DestinationID: pipeline.Unqueued, SourceID: "q-billing"})
	require.NoError(t, err)
	assert.Nil(t, ticket.QueueID)

	before := len(*f.seen)
	_, err = f.assign.Move(ctx, admin, "t-1", pipeline.DropEvent{DestinationID: "q-support", SourceID: "q-support"})
	require.NoError(t, err)
	assert.Len(t, *f.seen, before)

	_, err = f.assign.Move(ctx, admin, "t-1", pipeline.DropEvent{DraggableID: "t-2", DestinationID: "novo"})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = f.assign.Move(ctx, admin, "t-1", pipeline.DropEvent{DestinationID: "q-old"})
	requireCode(t, err, "CONFLICT")
	_, err = f.assign.Move(ctx, admin, "t-1", pipeline.DropEvent{DestinationID: "nowhere"})
	requireCode(t, err, "NOT_FOUND")
}

func TestTicketDeadlinesFitStoredPrecision(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	opened := time.Date(2026, 3, 10, 9, 0, 0, 123456789, time.UTC)
	f.svc.now = func() time.Time { return opened }

	ticket, err := f.svc.Create(ctx, supportA, TicketCreateInput{Title: "Sem sinal", Priority: domain.TicketPriorityP2})
	require.NoError(t, err)
	want := time.Date(2026, 3, 10, 17, 0, 0, 123456000, time.UTC)
	assert.Equal(t, want, *ticket.SLAResolutionDeadline)

	explicit := opened.Add(time.Hour)
	ticket, err = f.svc.Create(ctx, supportA, TicketCreateInput{Title: "Boleto", SLADeadline: &explicit})
	require.NoError(t, err)
	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, explicit.Truncate(time.Microsecond), *stored.SLAResolutionDeadline)
	assert.Zero(t, stored.SLAResolutionDeadline.Nanosecond()%1000)
}

func TestTicketTypesFollowModules(t *testing.T) {
	support := seedTicket("s1", domain.TicketStatusNew, "", "t1")
	collection := seedTicket("c1", domain.TicketStatusNew, "", "t1")
	collection.TicketType = domain.TicketTypeCollection
	f := newTicketFixture(t, support, collection)
	ctx := context.Background()

	got, err := f.svc.List(ctx, collector, TicketListFilters{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)

	got, err = f.svc.List(ctx, collector, TicketListFilters{Types: []domain.TicketType{domain.TicketTypeSupport}})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.svc.Get(ctx, collector, "s1")
	requireCode(t, err, "FORBIDDEN")
	_, err = f.svc.UpdateStatus(ctx, collector, "s1", "fechado")
	requireCode(t, err, "FORBIDDEN")
	_, err = f.assign.Move(ctx, collector, "s1", pipeline.DropEvent{DestinationID: "q-billing"})
	requireCode(t, err, "FORBIDDEN")
	_, err = f.assign.Move(ctx, collector, "c1", pipeline.DropEvent{DestinationID: "q-support"})
	requireCode(t, err, "ACCESS_RESTRICTED")

	result, err := f.assign.AssignToMe(ctx, collector, []string{"s1", "c1"})
	require.NoError(t, err)
	require.Len(t, result.Updated, 1)
	assert.Equal(t, "c1", result.Updated[0].ID)
	assert.Contains(t, result.Failed, "s1")

	// a view-all grant widens the scope, not the modules
	viewAll := *collector
	viewAll.Permissions = &domain.AgentPermissions{CanViewAllTickets: true}
	_, err = f.svc.Get(ctx, &viewAll, "s1")
	requireCode(t, err, "FORBIDDEN")

	_, queues, err := f.svc.QueueBoard(ctx, collector, nil)
	require.NoError(t, err)
	require.Len(t, queues, 1)
	assert.Equal(t, "q-billing", queues[0].ID)

	created, err := f.svc.Create(ctx, collector, TicketCreateInput{Title: "Parcela atrasada"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketTypeCollection, created.TicketType)
	_, err = f.svc.Create(ctx, collector, TicketCreateInput{Title: "Sem sinal", TicketType: domain.TicketTypeSupport})
	requireCode(t, err, "ACCESS_RESTRICTED")
}

func TestTicketCreateChecksAssignee(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	solo := newAgent("solo", domain.AgentTypeSupport, "")

	_, err := f.svc.Create(ctx, solo, TicketCreateInput{Title: "x", AgentID: ptr("support-a")})
	requireCode(t, err, "FORBIDDEN")
	_, err = f.svc.Create(ctx, admin, TicketCreateInput{Title: "x", AgentID: ptr("ghost")})
	requireCode(t, err, "NOT_FOUND")
	_, err = f.svc.Create(ctx, admin, TicketCreateInput{Title: "x", AgentID: ptr("retired")})
	requireCode(t, err, "CONFLICT")
	assert.Empty(t, *f.seen)

	ticket, err := f.svc.Create(ctx, supportA, TicketCreateInput{Title: "x", AgentID: ptr(" support-a ")})
	require.NoError(t, err)
	assert.Equal(t, "support-a", *ticket.AgentID)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
}

func TestAssignToMeReopenRearmsSLA(t *testing.T) {
	f := newTicketFixture(t,
		seedTicket("done", domain.TicketStatusResolved, "support-a", "t1"),
		seedTicket("open", domain.TicketStatusInProgress, "support-a", "t1"),
	)

	result, err := f.assign.AssignToMe(context.Background(), supportA, []string{"done", "open"})
	require.NoError(t, err)
	require.Len(t, result.Updated, 2)
	assert.Equal(t, domain.TicketStatusAssigned, result.Updated[0].Status)
	assert.Equal(t, []string{"done"}, f.scheduler.scheduled)
}
