package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/config"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/repository"
)

var errStale = errors.New("stale sla timer")

// SLAProcessor handles SLA timers. Every handler re-reads the ticket, so a
// timer armed for an old deadline or a ticket already resolved does nothing.
type SLAProcessor struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewSLAProcessor constructs the processor.
func NewSLAProcessor(tickets repository.TicketRepository, dispatcher events.Dispatcher, logger *zap.Logger) *SLAProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAProcessor{tickets: tickets, dispatcher: dispatcher, logger: logger, now: time.Now}
}

func stale(ticket *domain.Ticket, p SLAPayload) bool {
	if ticket.Status.IsTerminal() || ticket.SLAResolutionDeadline == nil {
		return true
	}
	return !ticket.SLAResolutionDeadline.Truncate(time.Microsecond).Equal(p.Deadline.Truncate(time.Microsecond))
}

// HandleSLARisk publishes the at-risk event while the ticket is still open.
func (p *SLAProcessor) HandleSLARisk(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeSLAPayload(t)
	if err != nil {
		return err
	}
	ticket, err := p.tickets.GetByID(ctx, payload.TicketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if stale(ticket, payload) || ticket.SLABreached {
		p.logger.Debug("sla risk timer skipped", zap.String("ticket_id", ticket.ID))
		return nil
	}
	p.publish(ctx, events.EventTicketSLARisk, ticket)
	p.logger.Info("ticket sla at risk", zap.String("ticket_id", ticket.ID), zap.Time("deadline", payload.Deadline))
	return nil
}

// HandleSLABreach marks the ticket breached once its deadline passes.
func (p *SLAProcessor) HandleSLABreach(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeSLAPayload(t)
	if err != nil {
		return err
	}
	now := p.now()
	ticket, err := p.tickets.Mutate(ctx, payload.TicketID, func(ticket *domain.Ticket) error {
		if stale(ticket, payload) || ticket.SLABreached || ticket.SLAResolutionDeadline.After(now) {
			return errStale
		}
		ticket.SLABreached = true
		return nil
	})
	if errors.Is(err, errStale) || errors.Is(err, pgx.ErrNoRows) {
		p.logger.Debug("sla breach timer skipped", zap.String("ticket_id", payload.TicketID))
		return nil
	}
	if err != nil {
		return err
	}
	p.publish(ctx, events.EventTicketSLABreached, ticket)
	p.logger.Warn("ticket sla breached", zap.String("ticket_id", ticket.ID), zap.Time("deadline", payload.Deadline))
	return nil
}

func (p *SLAProcessor) publish(ctx context.Context, eventType events.EventType, ticket *domain.Ticket) {
	if p.dispatcher == nil {
		return
	}
	_ = p.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		RecordType: domain.RecordTicket,
		RecordID:   ticket.ID,
		Actor:      events.Actor{Type: domain.SubjectTypeSystem},
		Timestamp:  p.now(),
		Payload: events.TicketSLAPayload{
			AgentID:  ticket.AgentID,
			Title:    ticket.Title,
			Deadline: *ticket.SLAResolutionDeadline,
		},
	})
}

// Server runs the asynq worker for SLA timers.
type Server struct {
	server *asynq.Server
	client *asynq.Client
	logger *zap.Logger
}

// RedisOpt maps the service Redis config onto asynq's connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// NewServer builds the worker server and the client used to enqueue tasks.
func NewServer(redisCfg config.RedisConfig, jobsCfg config.JobsConfig, logger *zap.Logger) (*Server, *asynq.Client) {
	opt := RedisOpt(redisCfg)
	concurrency := jobsCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueCritical: 6,
			queueDefault:  3,
		},
		Logger: logger.Sugar(),
	})
	client := asynq.NewClient(opt)
	return &Server{server: server, client: client, logger: logger}, client
}

// Start registers handlers and starts processing in the background.
func (s *Server) Start(processor *SLAProcessor) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSLARisk, processor.HandleSLARisk)
	mux.HandleFunc(TypeSLABreach, processor.HandleSLABreach)
	s.logger.Info("starting sla worker")
	return s.server.Start(mux)
}

// Stop drains in-flight tasks and closes the client.
func (s *Server) Stop() {
	s.server.Shutdown()
	_ = s.client.Close()
}
