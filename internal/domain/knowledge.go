package domain

import "time"

// KBCategory groups knowledge base articles.
type KBCategory struct {
	ID          string
	Name        string
	Description string
	Position    int
	CreatedAt   time.Time
}

// KBArticle is a knowledge base entry.
type KBArticle struct {
	ID          string
	CategoryID  *string
	Title       string
	Content     string
	Tags        []string
	Published   bool
	Views       int64
	Helpful     int64
	NotHelpful  int64
	NeedsReview bool
	AuthorID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
