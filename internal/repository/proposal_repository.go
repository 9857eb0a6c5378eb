package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// ProposalMutator changes a locked proposal in place.
type ProposalMutator func(p *domain.Proposal) error

// ProposalRepository persists commercial proposals.
type ProposalRepository interface {
	Create(ctx context.Context, p *domain.Proposal) error
	GetByToken(ctx context.Context, token string) (*domain.Proposal, error)
	ListByLead(ctx context.Context, leadID string) ([]domain.Proposal, error)
	// MutateByToken locks the proposal addressed by its public token, applies fn and saves the response fields.
	MutateByToken(ctx context.Context, token string, fn ProposalMutator) (*domain.Proposal, error)
}

type proposalRepository struct {
	pool *pgxpool.Pool
}

// NewProposalRepository instantiates repository.
func NewProposalRepository(pool *pgxpool.Pool) ProposalRepository {
	return &proposalRepository{pool: pool}
}

const proposalColumns = `id, lead_id, public_token, title, description, value, status, response_note,
        responded_at, created_by, created_at`

func scanProposal(row rowScanner) (*domain.Proposal, error) {
	var p domain.Proposal
	if err := row.Scan(
		&p.ID,
		&p.LeadID,
		&p.PublicToken,
		&p.Title,
		&p.Description,
		&p.Value,
		&p.Status,
		&p.ResponseNote,
		&p.RespondedAt,
		&p.CreatedBy,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *proposalRepository) Create(ctx context.Context, p *domain.Proposal) error {
	const query = `
        INSERT INTO proposals (lead_id, public_token, title, description, value, status, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, p.LeadID, p.PublicToken, p.Title, p.Description, p.Value, p.Status, p.CreatedBy).
		Scan(&p.ID, &p.CreatedAt)
}

func (r *proposalRepository) GetByToken(ctx context.Context, token string) (*domain.Proposal, error) {
	return scanProposal(r.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE public_token=$1`, token))
}

func (r *proposalRepository) ListByLead(ctx context.Context, leadID string) ([]domain.Proposal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE lead_id=$1 ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *proposalRepository) MutateByToken(ctx context.Context, token string, fn ProposalMutator) (*domain.Proposal, error) {
	var result *domain.Proposal
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := scanProposal(tx.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE public_token=$1 FOR UPDATE`, token))
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE proposals SET status=$1, response_note=$2, responded_at=$3 WHERE id=$4`,
			p.Status, p.ResponseNote, p.RespondedAt, p.ID,
		); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
