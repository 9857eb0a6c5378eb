package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// LeadFilter captures list parameters.
type LeadFilter struct {
	Owner      *OwnershipFilter
	Kind       *domain.LeadKind
	Stages     []domain.Stage
	AgentID    *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// LeadMutator changes a locked lead in place.
type LeadMutator func(lead *domain.Lead) error

// LeadRepository encapsulates lead persistence.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	ListWithFilter(ctx context.Context, filter LeadFilter) ([]domain.Lead, error)
	// Mutate reads the lead under a row lock, applies fn and writes it back atomically.
	Mutate(ctx context.Context, id string, fn LeadMutator) (*domain.Lead, error)
}

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository instantiates repository.
func NewLeadRepository(pool *pgxpool.Pool) LeadRepository {
	return &leadRepository{pool: pool}
}

const leadColumns = `id, kind, name, company, document, email, phone, stage, stage_history, value,
        agent_id, team_id, concluded, concluded_at, lost, lost_at, lost_reason, created_at, updated_at`

func scanLead(row rowScanner) (*domain.Lead, error) {
	var l domain.Lead
	if err := row.Scan(
		&l.ID,
		&l.Kind,
		&l.Name,
		&l.Company,
		&l.Document,
		&l.Email,
		&l.Phone,
		&l.Stage,
		&l.StageHistory,
		&l.Value,
		&l.AgentID,
		&l.TeamID,
		&l.Concluded,
		&l.ConcludedAt,
		&l.Lost,
		&l.LostAt,
		&l.LostReason,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if l.StageHistory == nil {
		l.StageHistory = []domain.StageHistoryEntry{}
	}
	return &l, nil
}

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	if lead.StageHistory == nil {
		lead.StageHistory = []domain.StageHistoryEntry{}
	}
	const query = `
        INSERT INTO leads (kind, name, company, document, email, phone, stage, stage_history, value, agent_id, team_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		lead.Kind,
		lead.Name,
		lead.Company,
		lead.Document,
		lead.Email,
		lead.Phone,
		lead.Stage,
		lead.StageHistory,
		lead.Value,
		lead.AgentID,
		lead.TeamID,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id=$1`, id))
}

func (r *leadRepository) Mutate(ctx context.Context, id string, fn LeadMutator) (*domain.Lead, error) {
	var result *domain.Lead
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		lead, err := scanLead(tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(lead); err != nil {
			return err
		}
		const update = `
            UPDATE leads SET name=$1, company=$2, document=$3, email=$4, phone=$5, stage=$6, stage_history=$7,
                value=$8, agent_id=$9, team_id=$10, concluded=$11, concluded_at=$12, lost=$13, lost_at=$14,
                lost_reason=$15, updated_at=NOW()
            WHERE id=$16
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, update,
			lead.Name,
			lead.Company,
			lead.Document,
			lead.Email,
			lead.Phone,
			lead.Stage,
			lead.StageHistory,
			lead.Value,
			lead.AgentID,
			lead.TeamID,
			lead.Concluded,
			lead.ConcludedAt,
			lead.Lost,
			lead.LostAt,
			lead.LostReason,
			lead.ID,
		).Scan(&lead.UpdatedAt); err != nil {
			return err
		}
		result = lead
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *leadRepository) ListWithFilter(ctx context.Context, filter LeadFilter) ([]domain.Lead, error) {
	var w whereBuilder
	w.owner(filter.Owner)
	if filter.Kind != nil {
		w.add("kind=%s", *filter.Kind)
	}
	if filter.AgentID != nil {
		w.add("agent_id=%s", *filter.AgentID)
	}
	w.in("stage", toStrings(filter.Stages))
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		w.add("(LOWER(name) LIKE %s OR LOWER(COALESCE(company,'')) LIKE %s)", search, search)
	}

	query := `SELECT ` + leadColumns + ` FROM leads` + w.sql() +
		` ORDER BY updated_at DESC` + page(filter.Limit, filter.Offset, 200)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}
