package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// NotificationRepository persists per-agent in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByAgent(ctx context.Context, agentID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, agentID string) (int, error)
	// MarkRead flags one notification owned by agentID. It returns pgx.ErrNoRows when none matches.
	MarkRead(ctx context.Context, agentID, id string, at time.Time) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, agentID string, at time.Time) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, agent_id, type, title, message, priority, link, read, read_at, created_at`

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(
		&n.ID,
		&n.AgentID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Priority,
		&n.Link,
		&n.Read,
		&n.ReadAt,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (agent_id, type, title, message, priority, link)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, n.AgentID, n.Type, n.Title, n.Message, n.Priority, n.Link).
		Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) ListByAgent(ctx context.Context, agentID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	var w whereBuilder
	w.add("agent_id=%s", agentID)
	if unreadOnly {
		w.clauses = append(w.clauses, "NOT read")
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications` + w.sql() +
		` ORDER BY created_at DESC` + page(limit, 0, 50)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, agentID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE agent_id=$1 AND NOT read`, agentID).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, agentID, id string, at time.Time) (*domain.Notification, error) {
	const query = `
        UPDATE notifications SET read=TRUE, read_at=COALESCE(read_at, $1)
        WHERE id=$2 AND agent_id=$3
        RETURNING ` + notificationColumns
	return scanNotification(r.pool.QueryRow(ctx, query, at, id, agentID))
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, agentID string, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read=TRUE, read_at=$1 WHERE agent_id=$2 AND NOT read`, at, agentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
