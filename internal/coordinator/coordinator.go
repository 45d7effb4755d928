package coordinator

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/warblehq/warble/internal/schedule"
)

const (
	// DefaultCooldown is the minimum gap between two runs of the same profile.
	DefaultCooldown = 60 * time.Minute
	// DefaultGlobalSpacing is the minimum gap between any two scheduled runs.
	DefaultGlobalSpacing = 5 * time.Minute
	// DueWindow is how late a scheduled session may still be picked up.
	DueWindow = 30 * time.Second
)

// Coordinator owns the volatile mutual-exclusion and cooldown state. It is
// process-lifetime only and must never be treated as a source of truth
// across restarts; RebuildCooldowns restores what it can from persisted
// session completions.
type Coordinator struct {
	mu         sync.Mutex
	executing  map[string]bool
	lastDone   map[string]time.Time
	lastGlobal time.Time

	cooldown time.Duration
	spacing  time.Duration
}

func New(cooldown, spacing time.Duration) *Coordinator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if spacing <= 0 {
		spacing = DefaultGlobalSpacing
	}
	return &Coordinator{
		executing: make(map[string]bool),
		lastDone:  make(map[string]time.Time),
		cooldown:  cooldown,
		spacing:   spacing,
	}
}

// IsExecuting reports whether a run for the profile is currently in flight.
func (c *Coordinator) IsExecuting(profileID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executing[profileID]
}

// MarkExecuting claims the single-flight slot for a profile. It returns
// false when a run is already in flight, in which case the caller must not
// start another.
func (c *Coordinator) MarkExecuting(profileID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.executing[profileID] {
		return false
	}
	c.executing[profileID] = true
	return true
}

// MarkComplete clears the executing flag and stamps both the per-profile
// and the global cooldown clocks.
func (c *Coordinator) MarkComplete(profileID string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.executing, profileID)
	c.lastDone[profileID] = at
	if at.After(c.lastGlobal) {
		c.lastGlobal = at
	}
}

// Release clears the executing flag without touching cooldowns, for runs
// that ended before doing anything.
func (c *Coordinator) Release(profileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.executing, profileID)
}

// CanExecuteGlobally checks the global minimum spacing. Targeted manual
// requests always pass.
func (c *Coordinator) CanExecuteGlobally(now time.Time, targeted bool) bool {
	if targeted {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastGlobal.IsZero() || now.Sub(c.lastGlobal) >= c.spacing
}

// IsAvailable reports whether a profile may run right now: not executing,
// its most recent elapsed session is not already terminal, and it is
// outside its cooldown window. The starvation override lives in NextDue,
// which can see every other candidate.
func (c *Coordinator) IsAvailable(s *schedule.Schedule, profileID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.executing[profileID] {
		return false
	}
	if latest := latestElapsed(s, profileID, now); latest != nil {
		if latest.Status == schedule.StatusCompleted || latest.Status == schedule.StatusFailed {
			return false
		}
	}
	return !c.inCooldown(profileID, now)
}

func (c *Coordinator) inCooldown(profileID string, now time.Time) bool {
	last, ok := c.lastDone[profileID]
	return ok && now.Sub(last) < c.cooldown
}

// latestElapsed returns the profile's most recently scheduled session whose
// time has passed.
func latestElapsed(s *schedule.Schedule, profileID string, now time.Time) *schedule.Session {
	if s == nil {
		return nil
	}
	var latest *schedule.Session
	for i := range s.Sessions {
		sess := &s.Sessions[i]
		if sess.ProfileID != profileID || sess.ScheduledAt.After(now) {
			continue
		}
		if latest == nil || sess.ScheduledAt.After(latest.ScheduledAt) {
			latest = sess
		}
	}
	return latest
}

// NextDue picks the session to run this tick. The second return is true
// when the session is actually due; when nothing is due it returns the
// soonest future scheduled session, for display only.
//
// Among due candidates, profiles that have not executed recently win over
// ones that have; ties break on earliest scheduled time, then lowest
// profile ID, so the choice is deterministic.
func (c *Coordinator) NextDue(s *schedule.Schedule, now time.Time) (*schedule.Session, bool) {
	if s == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var ready, cooled []*schedule.Session
	for i := range s.Sessions {
		sess := &s.Sessions[i]
		if sess.Status != schedule.StatusScheduled {
			continue
		}
		if sess.ScheduledAt.After(now) || now.Sub(sess.ScheduledAt) > DueWindow {
			continue
		}
		if c.executing[sess.ProfileID] {
			continue
		}
		if latest := latestElapsed(s, sess.ProfileID, now); latest != nil &&
			(latest.Status == schedule.StatusCompleted || latest.Status == schedule.StatusFailed) {
			continue
		}
		if c.inCooldown(sess.ProfileID, now) {
			cooled = append(cooled, sess)
		} else {
			ready = append(ready, sess)
		}
	}

	if len(ready) > 0 {
		c.order(ready)
		return ready[0], true
	}
	if len(cooled) > 0 {
		// Starvation override: no other profile has an executable due
		// session, so the cooldown yields rather than stalling the tick.
		c.order(cooled)
		pick := cooled[0]
		log.Printf("[coordinator] cooldown override for profile %s (session %s, no other due candidates)",
			pick.ProfileID, pick.ID)
		return pick, true
	}

	return soonestFuture(s, now), false
}

// order sorts candidates in place: least recently executed profile first,
// then earliest scheduled time, then lowest profile ID.
func (c *Coordinator) order(candidates []*schedule.Session) {
	sort.SliceStable(candidates, func(i, j int) bool {
		li, lj := c.lastDone[candidates[i].ProfileID], c.lastDone[candidates[j].ProfileID]
		if !li.Equal(lj) {
			return li.Before(lj)
		}
		if !candidates[i].ScheduledAt.Equal(candidates[j].ScheduledAt) {
			return candidates[i].ScheduledAt.Before(candidates[j].ScheduledAt)
		}
		return candidates[i].ProfileID < candidates[j].ProfileID
	})
}

func soonestFuture(s *schedule.Schedule, now time.Time) *schedule.Session {
	var next *schedule.Session
	for i := range s.Sessions {
		sess := &s.Sessions[i]
		if sess.Status != schedule.StatusScheduled || !sess.ScheduledAt.After(now) {
			continue
		}
		if next == nil || sess.ScheduledAt.Before(next.ScheduledAt) {
			next = sess
		}
	}
	return next
}

// RebuildCooldowns restores cooldown clocks from persisted session
// completions after a restart; in-memory state is best effort and is gone.
func (c *Coordinator) RebuildCooldowns(s *schedule.Schedule) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range s.Sessions {
		sess := &s.Sessions[i]
		if sess.Status != schedule.StatusCompleted || sess.CompletedAt == nil {
			continue
		}
		done := *sess.CompletedAt
		if done.After(c.lastDone[sess.ProfileID]) {
			c.lastDone[sess.ProfileID] = done
		}
		if done.After(c.lastGlobal) {
			c.lastGlobal = done
		}
	}
}
