package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

const (
	// reviewMinVotes is the vote count after which feedback can flag an article.
	reviewMinVotes = 10
	// reviewNegativeShare is the not-helpful share that flags an article for review.
	reviewNegativeShare = 0.5
)

// KnowledgeService manages the knowledge base.
type KnowledgeService struct {
	repo   repository.KnowledgeRepository
	logger *zap.Logger
}

// ArticleInput carries article fields. Nil pointers leave a field untouched on update.
type ArticleInput struct {
	CategoryID *string
	Title      *string
	Content    *string
	Tags       []string
	Published  *bool
}

// ArticleListFilters narrows article listings.
type ArticleListFilters struct {
	CategoryID    *string
	Tag           *string
	SearchTerm    *string
	PublishedOnly bool
	NeedsReview   *bool
	Limit         int
	Offset        int
}

// NewKnowledgeService constructs the service.
func NewKnowledgeService(repo repository.KnowledgeRepository, logger *zap.Logger) *KnowledgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeService{repo: repo, logger: logger}
}

// Categories lists categories in display order.
func (s *KnowledgeService) Categories(ctx context.Context) ([]domain.KBCategory, error) {
	items, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// CreateCategory adds a category.
func (s *KnowledgeService) CreateCategory(ctx context.Context, name, description string, position int) (*domain.KBCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	c := &domain.KBCategory{Name: name, Description: strings.TrimSpace(description), Position: position}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, apperrors.MapError(err)
	}
	return c, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// CreateArticle writes a new article authored by agent.
func (s *KnowledgeService) CreateArticle(ctx context.Context, agent *domain.Agent, in ArticleInput) (*domain.KBArticle, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	var title, content string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		content = strings.TrimSpace(*in.Content)
	}
	if title == "" || content == "" {
		return nil, apperrors.NewValidationError("title and content are required", nil)
	}
	a := &domain.KBArticle{
		CategoryID: trimmed(in.CategoryID),
		Title:      title,
		Content:    content,
		Tags:       normalizeTags(in.Tags),
		Published:  in.Published != nil && *in.Published,
		AuthorID:   agent.ID,
	}
	if err := s.repo.CreateArticle(ctx, a); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("kb article created", zap.String("article_id", a.ID), zap.String("agent_id", agent.ID))
	return a, nil
}

// Articles lists articles.
func (s *KnowledgeService) Articles(ctx context.Context, f ArticleListFilters) ([]domain.KBArticle, error) {
	items, err := s.repo.ListArticles(ctx, repository.ArticleFilter{
		CategoryID:    trimmed(f.CategoryID),
		Tag:           trimmed(f.Tag),
		SearchTerm:    trimmed(f.SearchTerm),
		PublishedOnly: f.PublishedOnly,
		NeedsReview:   f.NeedsReview,
		Limit:         f.Limit,
		Offset:        f.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// Article loads one article and counts the view.
func (s *KnowledgeService) Article(ctx context.Context, id string) (*domain.KBArticle, error) {
	a, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "article", id)
	}
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("kb view not counted", zap.String("article_id", id), zap.Error(err))
	} else {
		a.Views++
	}
	return a, nil
}

// UpdateArticle applies the non-nil fields of in.
func (s *KnowledgeService) UpdateArticle(ctx context.Context, id string, in ArticleInput) (*domain.KBArticle, error) {
	a, err := s.repo.MutateArticle(ctx, id, func(a *domain.KBArticle) error {
		if in.Title != nil {
			v := strings.TrimSpace(*in.Title)
			if v == "" {
				return apperrors.NewValidationError("title must not be empty", nil)
			}
			a.Title = v
		}
		if in.Content != nil {
			v := strings.TrimSpace(*in.Content)
			if v == "" {
				return apperrors.NewValidationError("content must not be empty", nil)
			}
			a.Content = v
			a.NeedsReview = false
		}
		if in.CategoryID != nil {
			a.CategoryID = trimmed(in.CategoryID)
		}
		if in.Tags != nil {
			a.Tags = normalizeTags(in.Tags)
		}
		if in.Published != nil {
			a.Published = *in.Published
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "article", id)
	}
	return a, nil
}

// needsReview reports whether the votes flag the article as unhelpful.
func needsReview(helpful, notHelpful int64) bool {
	total := helpful + notHelpful
	if total <= reviewMinVotes {
		return false
	}
	return float64(notHelpful)/float64(total) > reviewNegativeShare
}

// Feedback records a helpful or not-helpful vote and flags the article for
// review once enough votes say it does not help.
func (s *KnowledgeService) Feedback(ctx context.Context, id string, helpful bool) (*domain.KBArticle, error) {
	a, err := s.repo.MutateArticle(ctx, id, func(a *domain.KBArticle) error {
		if helpful {
			a.Helpful++
		} else {
			a.NotHelpful++
		}
		if needsReview(a.Helpful, a.NotHelpful) {
			a.NeedsReview = true
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "article", id)
	}
	if a.NeedsReview {
		s.logger.Info("kb article flagged for review", zap.String("article_id", a.ID))
	}
	return a, nil
}
