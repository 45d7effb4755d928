package schedule

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Property check over roster sizes and seeds: every generated schedule
// satisfies Validate and keeps per-profile session counts in range.
func TestGenerate_Property(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "rosterSize")
		seed := rapid.Int64().Draw(t, "seed")

		g := NewGenerator(seed)
		s, err := g.Generate(testRoster(n), now)
		if err != nil {
			t.Fatalf("Generate error: %v", err)
		}
		if err := Validate(s); err != nil {
			t.Fatalf("Validate error: %v", err)
		}
		if s.ProfileCount != n {
			t.Fatalf("ProfileCount = %d, want %d", s.ProfileCount, n)
		}

		perProfile := map[string]int{}
		immediate := 0
		for _, sess := range s.Sessions {
			if sess.Immediate {
				immediate++
				continue
			}
			perProfile[sess.ProfileID]++
		}
		if immediate != 1 {
			t.Fatalf("immediate sessions = %d, want 1", immediate)
		}
		if len(perProfile) != n {
			t.Fatalf("profiles with sessions = %d, want %d", len(perProfile), n)
		}
		for id, c := range perProfile {
			if c < minSessionsPerProfile || c > maxSessionsPerProfile {
				t.Fatalf("profile %s session count = %d", id, c)
			}
		}
	})
}
