package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/crmdesk/crm-service/internal/domain"
)

const (
	TypeSLARisk   = "ticket:sla_risk"
	TypeSLABreach = "ticket:sla_breach"

	queueCritical = "critical"
	queueDefault  = "default"
)

// SLAPayload identifies the ticket and the deadline a timer was armed for.
// A ticket whose deadline moved since scheduling ignores the stale timer.
type SLAPayload struct {
	TicketID string    `json:"ticket_id"`
	Deadline time.Time `json:"deadline"`
}

// NewSLATask builds a task of taskType for ticket t.
func NewSLATask(taskType string, ticketID string, deadline time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(SLAPayload{TicketID: ticketID, Deadline: deadline.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload), nil
}

func decodeSLAPayload(t *asynq.Task) (SLAPayload, error) {
	var p SLAPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.TicketID == "" {
		return p, fmt.Errorf("%s payload without ticket_id: %w", t.Type(), asynq.SkipRetry)
	}
	return p, nil
}

// Scheduler arms SLA timers for tickets.
type Scheduler interface {
	ScheduleSLA(ctx context.Context, ticket *domain.Ticket) error
}

// Enqueuer is the subset of *asynq.Client used for scheduling.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqScheduler schedules SLA risk and breach tasks through asynq.
type AsynqScheduler struct {
	client     Enqueuer
	riskWindow time.Duration
	now        func() time.Time
}

// NewAsynqScheduler builds a scheduler. riskWindow is how long before the
// deadline the risk notification fires.
func NewAsynqScheduler(client Enqueuer, riskWindow time.Duration) *AsynqScheduler {
	return &AsynqScheduler{client: client, riskWindow: riskWindow, now: time.Now}
}

// ScheduleSLA arms the risk and breach timers for ticket. Tickets without a
// deadline or already terminal are skipped; timers already in the past fire
// immediately. Scheduling the same deadline twice is a no-op.
func (s *AsynqScheduler) ScheduleSLA(ctx context.Context, ticket *domain.Ticket) error {
	if s == nil || s.client == nil || ticket == nil || ticket.SLAResolutionDeadline == nil || ticket.Status.IsTerminal() {
		return nil
	}
	deadline := ticket.SLAResolutionDeadline.UTC()
	now := s.now()

	if deadline.After(now) {
		riskAt := deadline.Add(-s.riskWindow)
		if err := s.enqueue(ctx, TypeSLARisk, ticket.ID, deadline, riskAt, queueDefault); err != nil {
			return err
		}
	}
	return s.enqueue(ctx, TypeSLABreach, ticket.ID, deadline, deadline, queueCritical)
}

func (s *AsynqScheduler) enqueue(ctx context.Context, taskType, ticketID string, deadline, at time.Time, queue string) error {
	task, err := NewSLATask(taskType, ticketID, deadline)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.Queue(queue),
		asynq.TaskID(fmt.Sprintf("%s:%s:%d", taskType, ticketID, deadline.Unix())),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
