package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// TaskFilter narrows the personal task list.
type TaskFilter struct {
	AgentID     string
	Completed   *bool
	ScheduledTo *time.Time
	Limit       int
	Offset      int
}

// ActivityRepository persists timeline entries and tasks.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	GetByID(ctx context.Context, id string) (*domain.Activity, error)
	// ListByRecord returns the timeline of a record, most recent first.
	ListByRecord(ctx context.Context, recordType domain.RecordType, recordID string) ([]domain.Activity, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]domain.Activity, error)
	// Complete marks an activity done. Completing twice keeps the first completion time.
	Complete(ctx context.Context, id string, at time.Time) (*domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository instantiates repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

const activityColumns = `id, type, subject, description, record_type, record_id, agent_id, completed,
        completed_at, scheduled_for, created_at`

func scanActivity(row rowScanner) (*domain.Activity, error) {
	var a domain.Activity
	if err := row.Scan(
		&a.ID,
		&a.Type,
		&a.Subject,
		&a.Description,
		&a.RecordType,
		&a.RecordID,
		&a.AgentID,
		&a.Completed,
		&a.CompletedAt,
		&a.ScheduledFor,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (type, subject, description, record_type, record_id, agent_id, completed, completed_at, scheduled_for)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		activity.Type,
		activity.Subject,
		activity.Description,
		activity.RecordType,
		activity.RecordID,
		activity.AgentID,
		activity.Completed,
		activity.CompletedAt,
		activity.ScheduledFor,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *activityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	return scanActivity(r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id=$1`, id))
}

func (r *activityRepository) ListByRecord(ctx context.Context, recordType domain.RecordType, recordID string) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities
        WHERE record_type=$1 AND record_id=$2
        ORDER BY COALESCE(scheduled_for, created_at) DESC, created_at DESC`
	return r.list(ctx, query, recordType, recordID)
}

func (r *activityRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]domain.Activity, error) {
	var w whereBuilder
	w.add("type=%s", domain.ActivityTask)
	w.add("agent_id=%s", filter.AgentID)
	if filter.Completed != nil {
		w.add("completed=%s", *filter.Completed)
	}
	if filter.ScheduledTo != nil {
		w.add("scheduled_for <= %s", *filter.ScheduledTo)
	}
	query := `SELECT ` + activityColumns + ` FROM activities` + w.sql() +
		` ORDER BY completed ASC, scheduled_for ASC NULLS LAST, created_at DESC` + page(filter.Limit, filter.Offset, 100)
	return r.list(ctx, query, w.args...)
}

func (r *activityRepository) Complete(ctx context.Context, id string, at time.Time) (*domain.Activity, error) {
	const query = `
        UPDATE activities SET completed=TRUE, completed_at=COALESCE(completed_at, $1)
        WHERE id=$2
        RETURNING ` + activityColumns
	return scanActivity(r.pool.QueryRow(ctx, query, at, id))
}

func (r *activityRepository) list(ctx context.Context, query string, args ...any) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}
