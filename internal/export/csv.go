// Package export renders record sets as CSV downloads.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
)

var ticketHeader = []string{
	"id", "external_key", "title", "status", "priority", "ticket_type", "source",
	"queue_id", "agent_id", "sla_resolution_deadline", "sla_breached", "created_at",
}

var leadHeader = []string{
	"id", "kind", "name", "company", "email", "phone", "stage", "value",
	"agent_id", "concluded", "lost", "created_at",
}

// WriteTickets writes one row per ticket with a header row.
func WriteTickets(w io.Writer, tickets []domain.Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ticketHeader); err != nil {
		return err
	}
	for _, t := range tickets {
		row := []string{
			t.ID,
			t.ExternalKey,
			t.Title,
			string(t.Status),
			string(t.Priority),
			string(t.TicketType),
			string(t.Source),
			deref(t.QueueID),
			deref(t.AgentID),
			formatTime(t.SLAResolutionDeadline),
			strconv.FormatBool(t.SLABreached),
			t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLeads writes one row per lead with a header row.
func WriteLeads(w io.Writer, leads []domain.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(leadHeader); err != nil {
		return err
	}
	for _, l := range leads {
		row := []string{
			l.ID,
			string(l.Kind),
			l.Name,
			deref(l.Company),
			deref(l.Email),
			deref(l.Phone),
			string(l.Stage),
			strconv.FormatFloat(l.Value, 'f', 2, 64),
			deref(l.AgentID),
			strconv.FormatBool(l.Concluded),
			strconv.FormatBool(l.Lost),
			l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
