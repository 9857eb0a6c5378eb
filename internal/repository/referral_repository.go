package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// ReferralFilter captures list parameters.
type ReferralFilter struct {
	Owner              *OwnershipFilter
	Stages             []domain.Stage
	CommissionStatuses []domain.CommissionStatus
	Limit              int
	Offset             int
}

// ReferralMutator changes a locked referral in place.
type ReferralMutator func(referral *domain.Referral) error

// ReferralRepository encapsulates referral persistence.
type ReferralRepository interface {
	Create(ctx context.Context, referral *domain.Referral) error
	GetByID(ctx context.Context, id string) (*domain.Referral, error)
	ListWithFilter(ctx context.Context, filter ReferralFilter) ([]domain.Referral, error)
	Mutate(ctx context.Context, id string, fn ReferralMutator) (*domain.Referral, error)
}

type referralRepository struct {
	pool *pgxpool.Pool
}

// NewReferralRepository instantiates repository.
func NewReferralRepository(pool *pgxpool.Pool) ReferralRepository {
	return &referralRepository{pool: pool}
}

const referralColumns = `id, referrer_name, referrer_contact, referred_name, referred_contact, stage, stage_history,
        status, converted_at, commission_value, commission_status, agent_id, team_id, created_at, updated_at`

func scanReferral(row rowScanner) (*domain.Referral, error) {
	var r domain.Referral
	if err := row.Scan(
		&r.ID,
		&r.ReferrerName,
		&r.ReferrerContact,
		&r.ReferredName,
		&r.ReferredContact,
		&r.Stage,
		&r.StageHistory,
		&r.Status,
		&r.ConvertedAt,
		&r.CommissionValue,
		&r.CommissionStatus,
		&r.AgentID,
		&r.TeamID,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if r.StageHistory == nil {
		r.StageHistory = []domain.StageHistoryEntry{}
	}
	return &r, nil
}

func (r *referralRepository) Create(ctx context.Context, referral *domain.Referral) error {
	if referral.StageHistory == nil {
		referral.StageHistory = []domain.StageHistoryEntry{}
	}
	const query = `
        INSERT INTO referrals (referrer_name, referrer_contact, referred_name, referred_contact, stage, stage_history,
            status, commission_value, commission_status, agent_id, team_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		referral.ReferrerName,
		referral.ReferrerContact,
		referral.ReferredName,
		referral.ReferredContact,
		referral.Stage,
		referral.StageHistory,
		referral.Status,
		referral.CommissionValue,
		referral.CommissionStatus,
		referral.AgentID,
		referral.TeamID,
	).Scan(&referral.ID, &referral.CreatedAt, &referral.UpdatedAt)
}

func (r *referralRepository) GetByID(ctx context.Context, id string) (*domain.Referral, error) {
	return scanReferral(r.pool.QueryRow(ctx, `SELECT `+referralColumns+` FROM referrals WHERE id=$1`, id))
}

func (r *referralRepository) Mutate(ctx context.Context, id string, fn ReferralMutator) (*domain.Referral, error) {
	var result *domain.Referral
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		referral, err := scanReferral(tx.QueryRow(ctx, `SELECT `+referralColumns+` FROM referrals WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(referral); err != nil {
			return err
		}
		const update = `
            UPDATE referrals SET stage=$1, stage_history=$2, status=$3, converted_at=$4, commission_value=$5,
                commission_status=$6, agent_id=$7, team_id=$8, updated_at=NOW()
            WHERE id=$9
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, update,
			referral.Stage,
			referral.StageHistory,
			referral.Status,
			referral.ConvertedAt,
			referral.CommissionValue,
			referral.CommissionStatus,
			referral.AgentID,
			referral.TeamID,
			referral.ID,
		).Scan(&referral.UpdatedAt); err != nil {
			return err
		}
		result = referral
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *referralRepository) ListWithFilter(ctx context.Context, filter ReferralFilter) ([]domain.Referral, error) {
	var w whereBuilder
	w.owner(filter.Owner)
	w.in("stage", toStrings(filter.Stages))
	w.in("commission_status", toStrings(filter.CommissionStatuses))

	query := `SELECT ` + referralColumns + ` FROM referrals` + w.sql() +
		` ORDER BY updated_at DESC` + page(filter.Limit, filter.Offset, 200)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Referral{}
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ref)
	}
	return result, rows.Err()
}
