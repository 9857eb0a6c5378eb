package pipeline

import (
	"github.com/crmdesk/crm-service/internal/domain"
)

// Column is one board column with its cards.
type Column[T any] struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	Items []T    `json:"items"`
}

func group[T any, K ~string](keys []K, items []T, keyOf func(T) K) []Column[T] {
	index := make(map[K]int, len(keys))
	cols := make([]Column[T], len(keys))
	for i, k := range keys {
		index[k] = i
		cols[i] = Column[T]{Key: string(k), Items: []T{}}
	}
	for _, item := range items {
		i, ok := index[keyOf(item)]
		if !ok {
			continue
		}
		cols[i].Items = append(cols[i].Items, item)
		cols[i].Count++
	}
	return cols
}

// GroupTicketsByStatus builds the active ticket board; resolved and closed
// tickets are left out.
func GroupTicketsByStatus(tickets []domain.Ticket) []Column[domain.Ticket] {
	return group(domain.ActiveBoardStatuses, tickets, func(t domain.Ticket) domain.TicketStatus { return t.Status })
}

// BoardCounts returns the number of tickets per active-board status.
func BoardCounts(tickets []domain.Ticket) map[domain.TicketStatus]int {
	counts := make(map[domain.TicketStatus]int, len(domain.ActiveBoardStatuses))
	for _, s := range domain.ActiveBoardStatuses {
		counts[s] = 0
	}
	for _, t := range tickets {
		if _, ok := counts[t.Status]; ok {
			counts[t.Status]++
		}
	}
	return counts
}

// GroupLeadsByStage builds the sales pipeline board.
func GroupLeadsByStage(leads []domain.Lead) []Column[domain.Lead] {
	return group(domain.LeadStages, leads, func(l domain.Lead) domain.Stage { return l.Stage })
}

// GroupReferralsByStage builds the referral pipeline board.
func GroupReferralsByStage(referrals []domain.Referral) []Column[domain.Referral] {
	return group(domain.ReferralStages, referrals, func(r domain.Referral) domain.Stage { return r.Stage })
}

// Unqueued is the column key for tickets without a queue.
const Unqueued = "sem_fila"

// GroupTicketsByQueue builds the queue board. Only non-terminal tickets are
// placed; tickets whose queue is not listed go to the Unqueued column.
func GroupTicketsByQueue(queues []domain.Queue, tickets []domain.Ticket) []Column[domain.Ticket] {
	keys := make([]string, 0, len(queues)+1)
	known := make(map[string]struct{}, len(queues))
	for _, q := range queues {
		keys = append(keys, q.ID)
		known[q.ID] = struct{}{}
	}
	keys = append(keys, Unqueued)

	active := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !t.Status.IsTerminal() {
			active = append(active, t)
		}
	}
	return group(keys, active, func(t domain.Ticket) string {
		if t.QueueID == nil {
			return Unqueued
		}
		if _, ok := known[*t.QueueID]; !ok {
			return Unqueued
		}
		return *t.QueueID
	})
}
