package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// CustomerRepository reads and writes portal contacts and their contracts.
type CustomerRepository interface {
	CreateContact(ctx context.Context, contact *domain.Contact) error
	GetContactByID(ctx context.Context, id string) (*domain.Contact, error)
	GetContactByEmail(ctx context.Context, email string) (*domain.Contact, error)
	GetContactByPhone(ctx context.Context, phone string) (*domain.Contact, error)
	ListContracts(ctx context.Context, contactID string) ([]domain.Contract, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const contactColumns = `id, name, email, phone, created_at`

func scanContact(row rowScanner) (*domain.Contact, error) {
	var c domain.Contact
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepository) CreateContact(ctx context.Context, contact *domain.Contact) error {
	const query = `
        INSERT INTO contacts (name, email, phone)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, contact.Name, strings.ToLower(contact.Email), contact.Phone).
		Scan(&contact.ID, &contact.CreatedAt)
}

func (r *customerRepository) GetContactByID(ctx context.Context, id string) (*domain.Contact, error) {
	return scanContact(r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id=$1`, id))
}

func (r *customerRepository) GetContactByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	return scanContact(r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE email=$1`, strings.ToLower(email)))
}

func (r *customerRepository) GetContactByPhone(ctx context.Context, phone string) (*domain.Contact, error) {
	return scanContact(r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE phone=$1 ORDER BY created_at ASC LIMIT 1`, phone))
}

func (r *customerRepository) ListContracts(ctx context.Context, contactID string) ([]domain.Contract, error) {
	const query = `
        SELECT id, number, contact_id, status, monthly_value, due_day, created_at
        FROM contracts WHERE contact_id=$1
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Contract{}
	for rows.Next() {
		var c domain.Contract
		if err := rows.Scan(&c.ID, &c.Number, &c.ContactID, &c.Status, &c.MonthlyValue, &c.DueDay, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
