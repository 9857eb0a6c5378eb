package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// ArticleFilter captures knowledge base search parameters.
type ArticleFilter struct {
	CategoryID    *string
	Tag           *string
	SearchTerm    *string
	PublishedOnly bool
	NeedsReview   *bool
	Limit         int
	Offset        int
}

// ArticleMutator changes a locked article in place.
type ArticleMutator func(a *domain.KBArticle) error

// KnowledgeRepository persists knowledge base categories and articles.
type KnowledgeRepository interface {
	CreateCategory(ctx context.Context, c *domain.KBCategory) error
	ListCategories(ctx context.Context) ([]domain.KBCategory, error)
	CreateArticle(ctx context.Context, a *domain.KBArticle) error
	GetArticle(ctx context.Context, id string) (*domain.KBArticle, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]domain.KBArticle, error)
	IncrementViews(ctx context.Context, id string) error
	MutateArticle(ctx context.Context, id string, fn ArticleMutator) (*domain.KBArticle, error)
}

type knowledgeRepository struct {
	pool *pgxpool.Pool
}

// NewKnowledgeRepository instantiates repository.
func NewKnowledgeRepository(pool *pgxpool.Pool) KnowledgeRepository {
	return &knowledgeRepository{pool: pool}
}

const articleColumns = `id, category_id, title, content, tags, published, views, helpful, not_helpful,
        needs_review, author_id, created_at, updated_at`

func scanArticle(row rowScanner) (*domain.KBArticle, error) {
	var a domain.KBArticle
	if err := row.Scan(
		&a.ID,
		&a.CategoryID,
		&a.Title,
		&a.Content,
		&a.Tags,
		&a.Published,
		&a.Views,
		&a.Helpful,
		&a.NotHelpful,
		&a.NeedsReview,
		&a.AuthorID,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

func (r *knowledgeRepository) CreateCategory(ctx context.Context, c *domain.KBCategory) error {
	const query = `
        INSERT INTO kb_categories (name, description, position)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, c.Name, c.Description, c.Position).Scan(&c.ID, &c.CreatedAt)
}

func (r *knowledgeRepository) ListCategories(ctx context.Context) ([]domain.KBCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, position, created_at FROM kb_categories ORDER BY position ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.KBCategory{}
	for rows.Next() {
		var c domain.KBCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Position, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *knowledgeRepository) CreateArticle(ctx context.Context, a *domain.KBArticle) error {
	if a.Tags == nil {
		a.Tags = []string{}
	}
	const query = `
        INSERT INTO kb_articles (category_id, title, content, tags, published, author_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, a.CategoryID, a.Title, a.Content, a.Tags, a.Published, a.AuthorID).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *knowledgeRepository) GetArticle(ctx context.Context, id string) (*domain.KBArticle, error) {
	return scanArticle(r.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM kb_articles WHERE id=$1`, id))
}

func (r *knowledgeRepository) ListArticles(ctx context.Context, filter ArticleFilter) ([]domain.KBArticle, error) {
	var w whereBuilder
	if filter.CategoryID != nil {
		w.add("category_id=%s", *filter.CategoryID)
	}
	if filter.Tag != nil && *filter.Tag != "" {
		w.add("%s = ANY(tags)", *filter.Tag)
	}
	if filter.PublishedOnly {
		w.clauses = append(w.clauses, "published")
	}
	if filter.NeedsReview != nil {
		w.add("needs_review=%s", *filter.NeedsReview)
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		w.add("(LOWER(title) LIKE %s OR LOWER(content) LIKE %s)", search, search)
	}

	query := `SELECT ` + articleColumns + ` FROM kb_articles` + w.sql() +
		` ORDER BY helpful DESC, views DESC, updated_at DESC` + page(filter.Limit, filter.Offset, 50)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.KBArticle{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *knowledgeRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE kb_articles SET views = views + 1 WHERE id=$1`, id)
	return err
}

func (r *knowledgeRepository) MutateArticle(ctx context.Context, id string, fn ArticleMutator) (*domain.KBArticle, error) {
	var result *domain.KBArticle
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		a, err := scanArticle(tx.QueryRow(ctx, `SELECT `+articleColumns+` FROM kb_articles WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		const update = `
            UPDATE kb_articles SET category_id=$1, title=$2, content=$3, tags=$4, published=$5,
                helpful=$6, not_helpful=$7, needs_review=$8, updated_at=NOW()
            WHERE id=$9
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, update,
			a.CategoryID, a.Title, a.Content, a.Tags, a.Published,
			a.Helpful, a.NotHelpful, a.NeedsReview, a.ID,
		).Scan(&a.UpdatedAt); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
