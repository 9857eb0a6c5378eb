package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/crm-service/internal/api/dto"
	"github.com/crmdesk/crm-service/internal/service"
)

// KnowledgeHandler serves the knowledge base and the ticket copilot.
type KnowledgeHandler struct {
	kb      *service.KnowledgeService
	copilot *service.CopilotService
}

// NewKnowledgeHandler constructs handler.
func NewKnowledgeHandler(kb *service.KnowledgeService, copilot *service.CopilotService) *KnowledgeHandler {
	return &KnowledgeHandler{kb: kb, copilot: copilot}
}

// ListCategories GET /kb/categories.
func (h *KnowledgeHandler) ListCategories(c *fiber.Ctx) error {
	items, err := h.kb.Categories(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.CategoryResponse, 0, len(items))
	for i := range items {
		resp = append(resp, categoryResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateCategory POST /kb/categories.
func (h *KnowledgeHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CategoryCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	category, err := h.kb.CreateCategory(c.UserContext(), req.Name, req.Description, req.Position)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// ListArticles GET /kb/articles.
func (h *KnowledgeHandler) ListArticles(c *fiber.Ctx) error {
	f := service.ArticleListFilters{
		CategoryID:  optional(c.Query("category_id")),
		Tag:         optional(c.Query("tag")),
		SearchTerm:  optional(c.Query("q")),
		NeedsReview: parseBool(c.Query("needs_review")),
	}
	if v := parseBool(c.Query("published")); v != nil {
		f.PublishedOnly = *v
	}
	f.Limit, f.Offset = page(c)
	items, err := h.kb.Articles(c.UserContext(), f)
	if err != nil {
		return err
	}
	resp := make([]dto.ArticleResponse, 0, len(items))
	for i := range items {
		resp = append(resp, articleResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateArticle POST /kb/articles.
func (h *KnowledgeHandler) CreateArticle(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.ArticleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	article, err := h.kb.CreateArticle(c.UserContext(), agent, articleInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": articleResponse(article)})
}

// GetArticle GET /kb/articles/:id.
func (h *KnowledgeHandler) GetArticle(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "article")
	if err != nil {
		return err
	}
	article, err := h.kb.Article(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": articleResponse(article)})
}

// UpdateArticle PATCH /kb/articles/:id.
func (h *KnowledgeHandler) UpdateArticle(c *fiber.Ctx) error {
	var req dto.ArticleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := pathID(c, "id", "article")
	if err != nil {
		return err
	}
	article, err := h.kb.UpdateArticle(c.UserContext(), id, articleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": articleResponse(article)})
}

// Feedback POST /kb/articles/:id/feedback.
func (h *KnowledgeHandler) Feedback(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := pathID(c, "id", "article")
	if err != nil {
		return err
	}
	article, err := h.kb.Feedback(c.UserContext(), id, *req.Helpful)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": articleResponse(article)})
}

// Summarize POST /assistant/tickets/:id/summary.
func (h *KnowledgeHandler) Summarize(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	summary, err := h.copilot.Summarize(c.UserContext(), agent, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Replies POST /assistant/tickets/:id/replies.
func (h *KnowledgeHandler) Replies(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	replies, err := h.copilot.Replies(c.UserContext(), agent, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": replies})
}

// Classify POST /assistant/tickets/:id/classify.
func (h *KnowledgeHandler) Classify(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	class, err := h.copilot.Classify(c.UserContext(), agent, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": class})
}

func articleInput(req dto.ArticleRequest) service.ArticleInput {
	return service.ArticleInput{
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Content:    req.Content,
		Tags:       req.Tags,
		Published:  req.Published,
	}
}
