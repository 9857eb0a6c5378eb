package domain

import "time"

// Queue is a named bucket routing tickets to a team, independent of status.
type Queue struct {
	ID         string
	Name       string
	TicketType TicketType
	TeamID     *string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
