package session

import (
	"context"
	"strings"
	"testing"

	"github.com/warblehq/warble/internal/browser"
)

func TestIsJustNow(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"now", true},
		{"Just now", true},
		{"5s", true},
		{"30s", true},
		{"2m", false},
		{"1h", false},
		{"Sep 1", false},
		{"", false},
		{"s", false},
	}
	for _, tt := range tests {
		if got := isJustNow(tt.label); got != tt.want {
			t.Errorf("isJustNow(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestMatchByText_PrefixOnTruncatedCard(t *testing.T) {
	comment := "a reply long enough that the card view truncates it well past the eighty rune prefix boundary used for matching"
	truncated := string([]rune(comment)[:90])
	card := postCard(truncated, "/me/status/1")

	e := newTestEngine(t, &fakeDriver{}, &fakeProvisioner{}, nil)
	ref := e.matchByText([]browser.Element{card}, comment)
	if ref != "https://x.com/me/status/1" {
		t.Errorf("matchByText() = %q, want prefix match to hit", ref)
	}
}

func TestMatchByText_NoMatch(t *testing.T) {
	card := postCard("someone else's unrelated reply", "/other/status/2")
	e := newTestEngine(t, &fakeDriver{}, &fakeProvisioner{}, nil)
	if ref := e.matchByText([]browser.Element{card}, "my comment text here"); ref != "" {
		t.Errorf("matchByText() = %q, want empty", ref)
	}
}

func TestMatchByTimestamp(t *testing.T) {
	fresh := postCard("posted seconds ago", "/me/status/3")
	fresh.children[string(browser.RoleTimestamp)] = &fakeEl{text: "12s"}
	stale := postCard("posted an hour ago", "/other/status/4")
	stale.children[string(browser.RoleTimestamp)] = &fakeEl{text: "1h"}

	e := newTestEngine(t, &fakeDriver{}, &fakeProvisioner{}, nil)
	if ref := e.matchByTimestamp([]browser.Element{stale, fresh}); ref != "https://x.com/me/status/3" {
		t.Errorf("matchByTimestamp() = %q, want the fresh card", ref)
	}
}

func TestRecoverReplyRef_FirstReplyPositionWins(t *testing.T) {
	comment := "my freshly submitted reply text"
	root := postCard("the post being replied to", "/op/status/10")
	first := postCard(comment, "/me/status/20")
	marker := postCard(comment, "/stale/status/21")
	d := &fakeDriver{elems: map[string][]*fakeEl{
		string(browser.RolePost):        {root, first},
		string(browser.RoleReplyMarker): {marker},
	}}

	e := newTestEngine(t, d, &fakeProvisioner{}, nil)
	if ref := e.recoverReplyRef(context.Background(), d, comment); ref != "https://x.com/me/status/20" {
		t.Errorf("recoverReplyRef() = %q, want the first reply card", ref)
	}
}

func TestRecoverReplyRef_TimestampBeforeTextMatch(t *testing.T) {
	comment := "an older reply with identical wording"
	root := postCard("the post being replied to", "/op/status/10")
	unrelated := postCard("someone else chimed in", "/a/status/30")
	fresh := postCard("different wording entirely", "/me/status/31")
	fresh.children[string(browser.RoleTimestamp)] = &fakeEl{text: "3s"}
	textTwin := postCard(comment, "/old/status/32")
	textTwin.children[string(browser.RoleTimestamp)] = &fakeEl{text: "2h"}
	d := &fakeDriver{elems: map[string][]*fakeEl{
		string(browser.RolePost): {root, unrelated, fresh, textTwin},
	}}

	e := newTestEngine(t, d, &fakeProvisioner{}, nil)
	if ref := e.recoverReplyRef(context.Background(), d, comment); ref != "https://x.com/me/status/31" {
		t.Errorf("recoverReplyRef() = %q, want the just-now card", ref)
	}
}

func TestRecoverReplyRef_FallsBackToMostRecent(t *testing.T) {
	// No marker cards, no text or timestamp match: the last reply card on
	// the detail page is the best remaining guess.
	root := postCard("the post being replied to", "/op/status/10")
	older := postCard("an earlier reply", "/a/status/11")
	newest := postCard("the newest reply", "/b/status/12")
	d := &fakeDriver{elems: map[string][]*fakeEl{
		string(browser.RolePost): {root, older, newest},
	}}

	e := newTestEngine(t, d, &fakeProvisioner{}, nil)
	ref := e.recoverReplyRef(context.Background(), d, strings.Repeat("x", 20))
	if ref != "https://x.com/b/status/12" {
		t.Errorf("recoverReplyRef() = %q, want the most recent card", ref)
	}
}
