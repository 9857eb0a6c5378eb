package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// AgentFilter captures list parameters for the agent directory.
type AgentFilter struct {
	AgentTypes []domain.AgentType
	TeamID     *string
	ActiveOnly bool
	SearchTerm *string
	Limit      int
	Offset     int
}

// AgentRepository exposes persistence for internal users.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, password_hash, agent_type, team_id, permissions, active, created_at, updated_at`

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var a domain.Agent
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.AgentType,
		&a.TeamID,
		&a.Permissions,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, password_hash, agent_type, team_id, permissions, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		agent.Name,
		strings.ToLower(agent.Email),
		agent.PasswordHash,
		agent.AgentType,
		agent.TeamID,
		agent.Permissions,
		agent.Active,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents SET name=$1, password_hash=$2, agent_type=$3, team_id=$4, permissions=$5, active=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.PasswordHash,
		agent.AgentType,
		agent.TeamID,
		agent.Permissions,
		agent.Active,
		agent.ID,
	).Scan(&agent.UpdatedAt)
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=$1`, id))
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE email=$1`, strings.ToLower(email)))
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	var w whereBuilder
	w.in("agent_type", toStrings(filter.AgentTypes))
	if filter.TeamID != nil {
		w.add("team_id=%s", *filter.TeamID)
	}
	if filter.ActiveOnly {
		w.clauses = append(w.clauses, "active")
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		w.add("(LOWER(name) LIKE %s OR email LIKE %s)", search, search)
	}

	query := `SELECT ` + agentColumns + ` FROM agents` + w.sql() +
		` ORDER BY name ASC` + page(filter.Limit, filter.Offset, 200)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}
