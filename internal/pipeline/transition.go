// Package pipeline moves leads, referrals and tickets between board columns.
// Any column is reachable from any other; the functions only do the
// bookkeeping that must accompany a move.
package pipeline

import (
	"time"

	"github.com/crmdesk/crm-service/internal/domain"
)

// Change describes a move that actually happened.
type Change struct {
	From domain.Stage
	To   domain.Stage
}

// appendHistory records from→to, clamping the timestamp so the log never
// goes backwards even if clocks disagree.
func appendHistory(history []domain.StageHistoryEntry, from, to domain.Stage, actor string, now time.Time) []domain.StageHistoryEntry {
	changedAt := now.UTC()
	if n := len(history); n > 0 && changedAt.Before(history[n-1].ChangedAt) {
		changedAt = history[n-1].ChangedAt
	}
	return append(history, domain.StageHistoryEntry{
		From:      from,
		To:        to,
		ChangedAt: changedAt,
		ChangedBy: actor,
	})
}

// LeadOptions carries optional data for a lead move.
type LeadOptions struct {
	LostReason string
}

// ApplyLeadStage moves lead to stage. It returns false when the lead is
// already there, in which case nothing is modified.
func ApplyLeadStage(lead *domain.Lead, to domain.Stage, actor string, now time.Time, opts LeadOptions) (Change, bool) {
	if lead.Stage == to {
		return Change{}, false
	}
	from := lead.Stage
	lead.StageHistory = appendHistory(lead.StageHistory, from, to, actor, now)
	lead.Stage = to

	at := now.UTC()
	switch to {
	case domain.StageWon:
		lead.Concluded = true
		lead.ConcludedAt = &at
	case domain.StageLost:
		lead.Lost = true
		lead.LostAt = &at
		if opts.LostReason != "" {
			reason := opts.LostReason
			lead.LostReason = &reason
		}
	}
	return Change{From: from, To: to}, true
}

// ApplyReferralStage moves referral to stage. Reaching fechado_ganho converts
// the referral and approves its commission in the same update.
func ApplyReferralStage(referral *domain.Referral, to domain.Stage, actor string, now time.Time) (Change, bool) {
	if referral.Stage == to {
		return Change{}, false
	}
	from := referral.Stage
	referral.StageHistory = appendHistory(referral.StageHistory, from, to, actor, now)
	referral.Stage = to

	if to == domain.StageWon {
		at := now.UTC()
		referral.Status = domain.ReferralStatusConverted
		referral.ConvertedAt = &at
		referral.CommissionStatus = domain.CommissionApproved
	}
	return Change{From: from, To: to}, true
}

// StatusChange describes a ticket status move.
type StatusChange struct {
	From domain.TicketStatus
	To   domain.TicketStatus
}

// ApplyTicketStatus sets the ticket status and keeps the resolved/closed
// timestamps in step with it.
func ApplyTicketStatus(ticket *domain.Ticket, to domain.TicketStatus, now time.Time) (StatusChange, bool) {
	if ticket.Status == to {
		return StatusChange{}, false
	}
	from := ticket.Status
	ticket.Status = to
	at := now.UTC()

	switch to {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &at
		ticket.ClosedAt = nil
	case domain.TicketStatusClosed:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &at
		}
		ticket.ClosedAt = &at
	default:
		ticket.ResolvedAt = nil
		ticket.ClosedAt = nil
	}
	return StatusChange{From: from, To: to}, true
}

// AssignToMe hands the ticket to agentID and marks it atribuido together.
func AssignToMe(ticket *domain.Ticket, agentID string, now time.Time) StatusChange {
	id := agentID
	ticket.AgentID = &id
	change, moved := ApplyTicketStatus(ticket, domain.TicketStatusAssigned, now)
	if !moved {
		return StatusChange{From: ticket.Status, To: ticket.Status}
	}
	return change
}

// DropEvent is what a drag-and-drop board sends when a card lands in a column.
type DropEvent struct {
	DraggableID   string `json:"draggable_id"`
	DestinationID string `json:"destination_droppable_id"`
	SourceID      string `json:"source_droppable_id,omitempty"`
}

// Moved reports whether the card changed column.
func (e DropEvent) Moved() bool {
	return e.DraggableID != "" && e.DestinationID != "" && e.DestinationID != e.SourceID
}
