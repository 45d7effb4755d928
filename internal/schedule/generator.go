package schedule

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/warblehq/warble/internal/profile"
)

const (
	// Scheduling window for non-immediate sessions, local time.
	windowStartHour = 6
	windowEndHour   = 23

	minSessionsPerProfile = 6
	maxSessionsPerProfile = 12

	jitterMaxMinutes = 60

	// Generation is retried when the random draw violates an invariant.
	maxGenerateAttempts = 8
)

// Generator builds day schedules from a profile roster. The rand source is
// injectable so tests can be deterministic.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate builds a full 24h schedule: one random profile gets an immediate
// comment session about a minute out, every profile gets 6-12 sessions at
// randomized times inside the 06:00-23:00 window, and non-immediate actions
// come from an evenly sized shuffled pool with runs longer than two broken
// up afterwards.
func (g *Generator) Generate(roster []profile.Profile, now time.Time) (*Schedule, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("generate schedule: empty roster")
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		s := g.generateOnce(roster, now)
		if err := Validate(s); err == nil {
			return s, nil
		}
	}
	return nil, fmt.Errorf("generate schedule: no valid draw after %d attempts", maxGenerateAttempts)
}

func (g *Generator) generateOnce(roster []profile.Profile, now time.Time) *Schedule {
	s := &Schedule{
		CreatedAt:    now,
		ExpiresAt:    now.Add(24 * time.Hour),
		ProfileCount: len(roster),
	}

	immediate := roster[g.rng.Intn(len(roster))]
	s.Sessions = append(s.Sessions, Session{
		ID:          uuid.NewString(),
		ProfileID:   immediate.ID,
		ScheduledAt: now.Add(time.Minute),
		Action:      ActionComment,
		Status:      StatusScheduled,
		Immediate:   true,
	})

	for _, p := range roster {
		count := minSessionsPerProfile + g.rng.Intn(maxSessionsPerProfile-minSessionsPerProfile+1)
		for i := 0; i < count; i++ {
			s.Sessions = append(s.Sessions, Session{
				ID:          uuid.NewString(),
				ProfileID:   p.ID,
				ScheduledAt: g.randomSlot(now),
				Status:      StatusScheduled,
			})
		}
	}

	sort.SliceStable(s.Sessions, func(i, j int) bool {
		return s.Sessions[i].ScheduledAt.Before(s.Sessions[j].ScheduledAt)
	})

	g.assignActions(s.Sessions)
	breakRuns(s.Sessions)
	renumber(s.Sessions)

	return s
}

// randomSlot picks a time inside today's 06:00-23:00 window plus jitter,
// rolled to the next day when it has already passed.
func (g *Generator) randomSlot(now time.Time) time.Time {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), windowStartHour, 0, 0, 0, now.Location())
	windowMinutes := (windowEndHour - windowStartHour) * 60

	at := dayStart.Add(time.Duration(g.rng.Intn(windowMinutes)) * time.Minute)
	at = at.Add(time.Duration(g.rng.Intn(jitterMaxMinutes+1)) * time.Minute)
	if !at.After(now) {
		at = at.Add(24 * time.Hour)
	}
	return at
}

// assignActions fills every non-immediate session from a shuffled pool that
// holds each action type an equal number of times.
func (g *Generator) assignActions(sessions []Session) {
	var open []int
	for i := range sessions {
		if !sessions[i].Immediate {
			open = append(open, i)
		}
	}
	if len(open) == 0 {
		return
	}

	per := (len(open) + len(Actions) - 1) / len(Actions)
	pool := make([]Action, 0, per*len(Actions))
	for _, a := range Actions {
		for i := 0; i < per; i++ {
			pool = append(pool, a)
		}
	}
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	for n, idx := range open {
		sessions[idx].Action = pool[n]
	}
}

// breakRuns rewrites any run of more than two identical consecutive action
// types, considering non-immediate sessions in scheduled order.
func breakRuns(sessions []Session) {
	var idxs []int
	for i := range sessions {
		if !sessions[i].Immediate {
			idxs = append(idxs, i)
		}
	}
	for n := 2; n < len(idxs); n++ {
		a := sessions[idxs[n]].Action
		if sessions[idxs[n-1]].Action == a && sessions[idxs[n-2]].Action == a {
			sessions[idxs[n]].Action = nextAction(a)
		}
	}
}

func nextAction(a Action) Action {
	for i, cand := range Actions {
		if cand == a {
			return Actions[(i+1)%len(Actions)]
		}
	}
	return ActionComment
}

// renumber assigns per-profile sequence numbers in scheduled order.
func renumber(sessions []Session) {
	counts := make(map[string]int)
	for i := range sessions {
		counts[sessions[i].ProfileID]++
		sessions[i].Seq = counts[sessions[i].ProfileID]
	}
}

// Validate checks the structural invariants of a schedule. A failure means
// the schedule must be regenerated in full, not repaired.
func Validate(s *Schedule) error {
	if s == nil || len(s.Sessions) == 0 {
		return fmt.Errorf("schedule has no sessions")
	}

	immediates := 0
	counts := make(map[Action]int)
	for i := range s.Sessions {
		sess := &s.Sessions[i]
		if sess.Immediate {
			immediates++
			if sess.Action != ActionComment {
				return fmt.Errorf("immediate session has action %s, want comment", sess.Action)
			}
		}
		counts[sess.Action]++
	}
	if immediates != 1 {
		return fmt.Errorf("schedule has %d immediate sessions, want 1", immediates)
	}
	for _, a := range Actions {
		if counts[a] == 0 {
			return fmt.Errorf("action %s absent from schedule", a)
		}
	}

	run, last := 0, Action("")
	for i := range s.Sessions {
		if s.Sessions[i].Immediate {
			continue
		}
		if s.Sessions[i].Action == last {
			run++
			if run > 2 {
				return fmt.Errorf("more than two consecutive %s sessions", last)
			}
		} else {
			last = s.Sessions[i].Action
			run = 1
		}
	}

	return nil
}

// NeedsRegeneration reports whether the persisted schedule must be replaced:
// expired, structurally invalid, or missing coverage.
func NeedsRegeneration(s *Schedule, now time.Time) bool {
	if s == nil || s.Expired(now) {
		return true
	}
	return Validate(s) != nil
}
