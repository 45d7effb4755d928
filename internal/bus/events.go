package bus

import (
	"time"

	"github.com/warblehq/warble/internal/schedule"
)

type EventType string

const (
	EventSessionDone EventType = "session_done"
	EventAlerts      EventType = "alerts"
	EventSchedule    EventType = "schedule"
)

// SessionReport summarizes one finished session run for subscribers.
type SessionReport struct {
	ProfileID   string
	SessionID   string
	Action      schedule.Action
	Outcome     string
	PostRef     string
	CommentText string
	ReplyRef    string
	Duration    time.Duration
	Err         string
}

// AlertBatch announces newly found keyword matches.
type AlertBatch struct {
	Keywords []string
	Added    int
	Total    int
}

// ScheduleNote announces a schedule regeneration.
type ScheduleNote struct {
	Sessions  int
	Profiles  int
	ExpiresAt time.Time
}

type Event struct {
	Type     EventType
	At       time.Time
	Session  *SessionReport
	Alerts   *AlertBatch
	Schedule *ScheduleNote
}
