package session

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/warblehq/warble/internal/browser"
)

const replyRefSettle = 2 * time.Second

// recoverReplyRef walks the page after a submitted comment looking for the
// new reply's permalink. The heuristics run in decreasing reliability and
// the first hit wins: the first reply by position, reply-indicator marker
// cards, a "just now" timestamp, an exact or prefix text match, then the
// most recent card. An empty result is acceptable.
func (e *Engine) recoverReplyRef(ctx context.Context, d browser.Driver, comment string) string {
	e.sleep(ctx, replyRefSettle)

	cards, err := e.locator.LocateAll(ctx, d, browser.RolePost)
	if err != nil {
		cards = nil
	}
	// On a post detail page the first card is the post itself; replies
	// follow it, the freshest surfaced first.
	if len(cards) > 1 {
		cards = cards[1:]
	}
	if len(cards) > 0 && e.textMatches(cards[0], comment) {
		if ref := e.postPermalink(cards[0]); ref != "" {
			return ref
		}
	}

	if markers, err := e.locator.LocateAll(ctx, d, browser.RoleReplyMarker); err == nil {
		for _, m := range markers {
			if e.textMatches(m, comment) {
				if ref := e.postPermalink(m); ref != "" {
					return ref
				}
			}
		}
	}

	if len(cards) == 0 {
		return ""
	}
	if ref := e.matchByTimestamp(cards); ref != "" {
		return ref
	}
	if ref := e.matchByText(cards, comment); ref != "" {
		return ref
	}
	// Last resort: with no better signal the most recent card is the best
	// guess for the reply just posted.
	if ref := e.postPermalink(cards[len(cards)-1]); ref != "" {
		log.Printf("[session] reply ref recovered by position only")
		return ref
	}
	return ""
}

// textMatches reports whether the card's text equals, or starts with, the
// comment. The platform can truncate long replies in the card view, so a
// prefix match on the first 80 runes is accepted.
func (e *Engine) textMatches(p browser.Element, comment string) bool {
	want := strings.TrimSpace(comment)
	if want == "" {
		return false
	}
	prefix := want
	if r := []rune(prefix); len(r) > 80 {
		prefix = string(r[:80])
	}
	text, err := e.postText(p)
	if err != nil {
		return false
	}
	got := strings.TrimSpace(text)
	return got == want || strings.HasPrefix(got, prefix)
}

func (e *Engine) matchByText(posts []browser.Element, comment string) string {
	for _, p := range posts {
		if e.textMatches(p, comment) {
			return e.postPermalink(p)
		}
	}
	return ""
}

// matchByTimestamp picks the card whose relative timestamp reads as posted
// seconds ago.
func (e *Engine) matchByTimestamp(posts []browser.Element) string {
	for _, p := range posts {
		ts, err := e.locator.LocateIn(p, browser.RoleTimestamp)
		if err != nil {
			continue
		}
		label, err := ts.Text()
		if err != nil {
			continue
		}
		if isJustNow(label) {
			return e.postPermalink(p)
		}
	}
	return ""
}

func isJustNow(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "now" || l == "just now" {
		return true
	}
	return strings.HasSuffix(l, "s") && len(l) <= 3 && l != "" && l[0] >= '0' && l[0] <= '9'
}
