package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// whereBuilder accumulates positional clauses the way every list query needs them.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(format string, values ...any) {
	placeholders := make([]any, len(values))
	for i, v := range values {
		w.args = append(w.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(format, placeholders...))
}

func (w *whereBuilder) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	w.args = append(w.args, values)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = ANY($%d)", column, len(w.args)))
}

// owner restricts rows to an agent, or to the agent plus their team.
func (w *whereBuilder) owner(o *OwnershipFilter) {
	if o == nil {
		return
	}
	if o.TeamID != nil {
		w.add("(agent_id=%s OR team_id=%s)", o.AgentID, *o.TeamID)
		return
	}
	w.add("agent_id=%s", o.AgentID)
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func page(limit, offset, defaultLimit int) string {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

// OwnershipFilter narrows a list to records owned by an agent or their team.
// A nil filter means no restriction.
type OwnershipFilter struct {
	AgentID string
	TeamID  *string
}

// inTx runs fn inside a transaction committed on success.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, pool, fn)
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
