package domain

import "time"

// ActivityType classifies CRM history items and personal tasks.
type ActivityType string

const (
	ActivityCall        ActivityType = "call"
	ActivityEmail       ActivityType = "email"
	ActivityMeeting     ActivityType = "meeting"
	ActivityNote        ActivityType = "note"
	ActivityStageChange ActivityType = "stage_change"
	ActivityTask        ActivityType = "task"
	ActivityWhatsApp    ActivityType = "whatsapp"
)

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityStageChange, ActivityTask, ActivityWhatsApp:
		return true
	}
	return false
}

// RecordType names the entity an activity is attached to.
type RecordType string

const (
	RecordTicket   RecordType = "ticket"
	RecordLead     RecordType = "lead"
	RecordReferral RecordType = "referral"
)

// Valid reports whether r is a known record type.
func (r RecordType) Valid() bool {
	return r == RecordTicket || r == RecordLead || r == RecordReferral
}

// Activity is a timeline entry or, when Type is task, a to-do item.
type Activity struct {
	ID           string
	Type         ActivityType
	Subject      string
	Description  string
	RecordType   RecordType
	RecordID     string
	AgentID      string
	Completed    bool
	CompletedAt  *time.Time
	ScheduledFor *time.Time
	CreatedAt    time.Time
}

// Timestamp is the moment used to order the activity on a timeline.
func (a Activity) Timestamp() time.Time {
	if a.ScheduledFor != nil {
		return *a.ScheduledFor
	}
	return a.CreatedAt
}
