package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// QueueRepository persists ticket queues.
type QueueRepository interface {
	Create(ctx context.Context, queue *domain.Queue) error
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Queue, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository instantiates repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

const queueColumns = `id, name, ticket_type, team_id, active, created_at, updated_at`

func scanQueue(row rowScanner) (*domain.Queue, error) {
	var q domain.Queue
	if err := row.Scan(&q.ID, &q.Name, &q.TicketType, &q.TeamID, &q.Active, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *queueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	const query = `
        INSERT INTO queues (name, ticket_type, team_id, active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, queue.Name, queue.TicketType, queue.TeamID, queue.Active).
		Scan(&queue.ID, &queue.CreatedAt, &queue.UpdatedAt)
}

func (r *queueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	return scanQueue(r.pool.QueryRow(ctx, `SELECT `+queueColumns+` FROM queues WHERE id=$1`, id))
}

func (r *queueRepository) List(ctx context.Context, activeOnly bool) ([]domain.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM queues`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Queue{}
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *q)
	}
	return result, rows.Err()
}
