package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// TicketFilter captures list parameters.
type TicketFilter struct {
	Owner       *OwnershipFilter
	QueueID     *string
	AgentID     *string
	ContactID   *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Types       []domain.TicketType
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketMutator changes a locked ticket in place. Returning an error aborts the update.
type TicketMutator func(ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Mutate reads the ticket under a row lock, applies fn and writes it back atomically.
	Mutate(ctx context.Context, id string, fn TicketMutator) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, title, description, status, priority, ticket_type, source,
        queue_id, agent_id, team_id, contact_id, sla_resolution_deadline, sla_breached,
        resolved_at, closed_at, created_at, updated_at`

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(
		&t.ID,
		&t.ExternalKey,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.TicketType,
		&t.Source,
		&t.QueueID,
		&t.AgentID,
		&t.TeamID,
		&t.ContactID,
		&t.SLAResolutionDeadline,
		&t.SLABreached,
		&t.ResolvedAt,
		&t.ClosedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, title, description, status, priority, ticket_type, source,
            queue_id, agent_id, team_id, contact_id, sla_resolution_deadline, sla_breached)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.TicketType,
		ticket.Source,
		ticket.QueueID,
		ticket.AgentID,
		ticket.TeamID,
		ticket.ContactID,
		ticket.SLAResolutionDeadline,
		ticket.SLABreached,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id))
}

func (r *ticketRepository) Mutate(ctx context.Context, id string, fn TicketMutator) (*domain.Ticket, error) {
	var result *domain.Ticket
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		ticket, err := scanTicket(tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(ticket); err != nil {
			return err
		}
		const update = `
            UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, ticket_type=$5,
                queue_id=$6, agent_id=$7, team_id=$8, sla_resolution_deadline=$9, sla_breached=$10,
                resolved_at=$11, closed_at=$12, updated_at=NOW()
            WHERE id=$13
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, update,
			ticket.Title,
			ticket.Description,
			ticket.Status,
			ticket.Priority,
			ticket.TicketType,
			ticket.QueueID,
			ticket.AgentID,
			ticket.TeamID,
			ticket.SLAResolutionDeadline,
			ticket.SLABreached,
			ticket.ResolvedAt,
			ticket.ClosedAt,
			ticket.ID,
		).Scan(&ticket.UpdatedAt); err != nil {
			return err
		}
		result = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var w whereBuilder
	w.owner(filter.Owner)
	if filter.QueueID != nil {
		w.add("queue_id=%s", *filter.QueueID)
	}
	if filter.AgentID != nil {
		w.add("agent_id=%s", *filter.AgentID)
	}
	if filter.ContactID != nil {
		w.add("contact_id=%s", *filter.ContactID)
	}
	w.in("status", toStrings(filter.Statuses))
	w.in("priority", toStrings(filter.Priorities))
	w.in("ticket_type", toStrings(filter.Types))
	if filter.CreatedFrom != nil {
		w.add("created_at >= %s", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		w.add("created_at <= %s", *filter.CreatedTo)
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		w.add("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(external_key) LIKE %s)", search, search, search)
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets` + w.sql() +
		` ORDER BY updated_at DESC` + page(filter.Limit, filter.Offset, 100)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}
