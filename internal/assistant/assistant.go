// Package assistant runs the copilot prompts for tickets. Model output is
// requested in JSON mode and checked against a schema before it reaches a
// caller, so handlers never render free-form model text.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	js "github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/config"
	"github.com/crmdesk/crm-service/internal/domain"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

const unavailableMessage = "assistant unavailable, try again"

// ErrNotConfigured is wrapped when no API key is set.
var ErrNotConfigured = errors.New("assistant not configured")

// ChatClient is the subset of *openai.Client the assistant calls.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Summary condenses a ticket conversation.
type Summary struct {
	Points    []string `json:"points"`
	Sentiment string   `json:"sentiment,omitempty"`
	NextStep  string   `json:"next_step,omitempty"`
}

// Replies holds suggested answers to the customer.
type Replies struct {
	Suggestions []string `json:"suggestions"`
}

// Classification is the model's guess at routing fields.
type Classification struct {
	Priority   domain.TicketPriority `json:"priority"`
	TicketType domain.TicketType     `json:"ticket_type"`
	Category   string                `json:"category,omitempty"`
	Confidence float64               `json:"confidence,omitempty"`
}

// Assistant wraps an OpenAI-compatible chat endpoint.
type Assistant struct {
	client    ChatClient
	model     string
	maxTokens int
	timeout   time.Duration
	schemas   contracts
	logger    *zap.Logger
}

// New builds an assistant from config. Without an API key every call
// reports AI_UNAVAILABLE.
func New(cfg config.AIConfig, logger *zap.Logger) *Assistant {
	var client ChatClient
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		client = openai.NewClientWithConfig(clientCfg)
	}
	return NewWithClient(client, cfg, logger)
}

// NewWithClient builds an assistant around an existing client.
func NewWithClient(client ChatClient, cfg config.AIConfig, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Assistant{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		schemas:   compileContracts(),
		logger:    logger,
	}
}

// SummarizeTicket returns the key points of a ticket and its timeline.
func (a *Assistant) SummarizeTicket(ctx context.Context, ticket *domain.Ticket, timeline []domain.Activity) (*Summary, error) {
	var out Summary
	prompt := "Summarize this ticket for the next agent. Answer with JSON " +
		`{"points": [string], "sentiment": "positive"|"neutral"|"negative", "next_step": string}.` +
		"\n\n" + describe(ticket, timeline)
	if err := a.run(ctx, "summary", prompt, a.schemas.summary, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuggestReplies drafts customer-facing answers.
func (a *Assistant) SuggestReplies(ctx context.Context, ticket *domain.Ticket, timeline []domain.Activity) (*Replies, error) {
	var out Replies
	prompt := "Draft up to three short replies in Portuguese the agent could send to the customer. " +
		`Answer with JSON {"suggestions": [string]}.` + "\n\n" + describe(ticket, timeline)
	if err := a.run(ctx, "replies", prompt, a.schemas.replies, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClassifyTicket suggests priority and type for a ticket.
func (a *Assistant) ClassifyTicket(ctx context.Context, ticket *domain.Ticket) (*Classification, error) {
	var out Classification
	prompt := "Classify this ticket. Priorities go from P1 (service down) to P4 (question). " +
		`Answer with JSON {"priority": "P1".."P4", "ticket_type": "support"|"sales"|"collection", ` +
		`"category": string, "confidence": number between 0 and 1}.` + "\n\n" + describe(ticket, nil)
	if err := a.run(ctx, "classify", prompt, a.schemas.classify, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Assistant) run(ctx context.Context, task, prompt string, schema *js.Schema, out any) error {
	if a.client == nil {
		return apperrors.NewUnavailable(apperrors.CodeAIUnavailable, unavailableMessage, ErrNotConfigured)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are the copilot of a CRM help desk. Reply with a single JSON object."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
		MaxTokens:      a.maxTokens,
	})
	if err != nil {
		a.logger.Warn("assistant call failed", zap.String("task", task), zap.Error(err))
		return apperrors.NewUnavailable(apperrors.CodeAIUnavailable, unavailableMessage, err)
	}
	if len(resp.Choices) == 0 {
		return apperrors.NewUnavailable(apperrors.CodeAIUnavailable, unavailableMessage, errors.New("empty completion"))
	}
	content := resp.Choices[0].Message.Content
	if err := decode(content, schema, out); err != nil {
		a.logger.Warn("assistant returned invalid payload", zap.String("task", task), zap.Error(err))
		return apperrors.NewUnavailable(apperrors.CodeAIUnavailable, unavailableMessage, err)
	}
	a.logger.Debug("assistant call",
		zap.String("task", task),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(started)))
	return nil
}

func decode(content string, schema *js.Schema, out any) error {
	var raw any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("completion schema: %w", err)
	}
	return json.Unmarshal([]byte(content), out)
}

func describe(ticket *domain.Ticket, timeline []domain.Activity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s: %s\n", ticket.ExternalKey, ticket.Title)
	fmt.Fprintf(&b, "Status: %s, priority: %s, type: %s\n", ticket.Status, ticket.Priority, ticket.TicketType)
	if ticket.Description != "" {
		fmt.Fprintf(&b, "Description:\n%s\n", ticket.Description)
	}
	if len(timeline) > 0 {
		b.WriteString("History (newest first):\n")
		for _, act := range timeline {
			fmt.Fprintf(&b, "- [%s] %s %s: %s\n",
				act.Timestamp().Format(time.RFC3339), act.Type, act.Subject, act.Description)
		}
	}
	return b.String()
}
