package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/crm-service/internal/assistant"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/repository/repotest"
)

type stubAssistant struct {
	timelineLen int
	calls       []string
}

func (s *stubAssistant) SummarizeTicket(_ context.Context, ticket *domain.Ticket, timeline []domain.Activity) (*assistant.Summary, error) {
	s.calls = append(s.calls, "summarize:"+ticket.ID)
	s.timelineLen = len(timeline)
	return &assistant.Summary{Points: []string{ticket.Title}}, nil
}

func (s *stubAssistant) SuggestReplies(_ context.Context, ticket *domain.Ticket, timeline []domain.Activity) (*assistant.Replies, error) {
	s.calls = append(s.calls, "replies:"+ticket.ID)
	s.timelineLen = len(timeline)
	return &assistant.Replies{Suggestions: []string{"Olá!"}}, nil
}

func (s *stubAssistant) ClassifyTicket(_ context.Context, ticket *domain.Ticket) (*assistant.Classification, error) {
	s.calls = append(s.calls, "classify:"+ticket.ID)
	return &assistant.Classification{Priority: domain.TicketPriorityP2, TicketType: domain.TicketTypeSupport}, nil
}

func TestCopilotService(t *testing.T) {
	f := newTicketFixture(t, seedTicket("t-1", domain.TicketStatusInProgress, "support-a", "t1"))
	activities := repotest.NewActivities(
		domain.Activity{ID: "a-1", Type: domain.ActivityNote, Subject: "cliente ligou", RecordType: domain.RecordTicket, RecordID: "t-1", CreatedAt: now},
		domain.Activity{ID: "a-2", Type: domain.ActivityNote, Subject: "outro", RecordType: domain.RecordTicket, RecordID: "t-9", CreatedAt: now},
	)
	ai := &stubAssistant{}
	svc := NewCopilotService(f.svc, activities, ai, nil)
	ctx := context.Background()

	summary, err := svc.Summarize(ctx, supportA, "t-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ticket t-1"}, summary.Points)
	assert.Equal(t, 1, ai.timelineLen)

	replies, err := svc.Replies(ctx, supportA, "t-1")
	require.NoError(t, err)
	assert.Len(t, replies.Suggestions, 1)

	class, err := svc.Classify(ctx, supportA, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityP2, class.Priority)

	stored, err := f.tickets.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityP3, stored.Priority, "classification does not change the ticket")

	_, err = svc.Summarize(ctx, supportB, "t-1")
	requireCode(t, err, "FORBIDDEN")
	_, err = svc.Classify(ctx, supportA, "ghost")
	requireCode(t, err, "NOT_FOUND")

	assert.Equal(t, []string{"summarize:t-1", "replies:t-1", "classify:t-1"}, ai.calls)
}
