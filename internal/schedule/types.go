package schedule

import (
	"time"
)

// Action is the kind of engagement a session performs.
type Action string

const (
	ActionComment Action = "comment"
	ActionLike    Action = "like"
	ActionReshare Action = "reshare"
)

// Actions lists every action type in a fixed order.
var Actions = []Action{ActionComment, ActionLike, ActionReshare}

// Status is the lifecycle state of a session. Completed and failed are
// terminal; a failed session is never retried within its schedule.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outcome records what a finished session actually did.
type Outcome struct {
	Action          Action        `json:"action"`
	CommentText     string        `json:"commentText,omitempty"`
	ReplyRef        string        `json:"replyRef,omitempty"`
	Duration        time.Duration `json:"duration"`
	WarmupLikes     int           `json:"warmupLikes"`
	WarmupReshares  int           `json:"warmupReshares"`
	WarmupBookmarks int           `json:"warmupBookmarks"`
	Error           string        `json:"error,omitempty"`
}

// Session is one planned unit of work for a profile within a day.
type Session struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profileId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Action      Action    `json:"action"`
	Status      Status    `json:"status"`
	Seq         int       `json:"seq"`
	Immediate   bool      `json:"immediate,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Outcome     *Outcome  `json:"outcome,omitempty"`
}

// Schedule is a 24h plan covering every profile. It is authoritative only
// until ExpiresAt; past expiry it must be regenerated in full.
type Schedule struct {
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ProfileCount int       `json:"profileCount"`
	Sessions     []Session `json:"sessions"`
}

// Expired reports whether the schedule is past its 24h window.
func (s *Schedule) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// FindSession returns a pointer to the session with the given ID, or nil.
func (s *Schedule) FindSession(id string) *Session {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}
