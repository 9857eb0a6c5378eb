package dto

import "time"

// CategoryCreateRequest payload.
type CategoryCreateRequest struct {
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description"`
	Position    int    `json:"position" validate:"gte=0"`
}

// CategoryResponse is a knowledge base category.
type CategoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArticleRequest is used for create and patch; absent fields are left unchanged on patch.
type ArticleRequest struct {
	CategoryID *string  `json:"category_id" validate:"omitempty,uuid"`
	Title      *string  `json:"title" validate:"omitempty,max=200"`
	Content    *string  `json:"content"`
	Tags       []string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
	Published  *bool    `json:"published"`
}

// FeedbackRequest is a helpful/not-helpful vote.
type FeedbackRequest struct {
	Helpful *bool `json:"helpful" validate:"required"`
}

// ArticleResponse is a knowledge base article.
type ArticleResponse struct {
	ID          string    `json:"id"`
	CategoryID  *string   `json:"category_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Tags        []string  `json:"tags"`
	Published   bool      `json:"published"`
	Views       int64     `json:"views"`
	Helpful     int64     `json:"helpful"`
	NotHelpful  int64     `json:"not_helpful"`
	NeedsReview bool      `json:"needs_review"`
	AuthorID    string    `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
