package session

import (
	"context"
	"log"
	"strings"

	"github.com/warblehq/warble/internal/browser"
)

const (
	discoverMaxPosts   = 10
	discoverMaxScrolls = 20
	discoverScrollPx   = 600
)

var promoKeywords = []string{
	"sponsored", "promoted", "limited time", "buy now", "discount",
	"sign up today", "% off", "use code", "free shipping", "order now",
}

var obviousPromo = []string{"sponsored", "promoted"}

// discover walks the feed looking for an organic post with text that
// passes validation. It inspects at most discoverMaxPosts candidates over
// at most discoverMaxScrolls scrolls. When every candidate failed the
// strict validation it settles for the first readable non-ad post it saw;
// returning (nil, "") is a clean exhaustion, not an error.
func (e *Engine) discover(ctx context.Context, d browser.Driver) (browser.Element, string) {
	seen := map[string]bool{}
	inspected := 0
	var fbPost browser.Element
	var fbText string

	for scroll := 0; scroll <= discoverMaxScrolls; scroll++ {
		if ctx.Err() != nil {
			return nil, ""
		}
		posts, err := e.locator.LocateAll(ctx, d, browser.RolePost)
		if err != nil {
			log.Printf("[session] discovery: list posts: %v", err)
		}
		for _, post := range posts {
			ref := e.postPermalink(post)
			key := ref
			if key == "" {
				text, _ := e.postText(post)
				key = text
			}
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			inspected++

			text, ok := e.inspect(ctx, post)
			if ok {
				return post, text
			}
			if fbPost == nil {
				if t, err := e.postText(post); err == nil && readableFallback(t) {
					fbPost, fbText = post, t
				}
			}
			if inspected >= discoverMaxPosts {
				log.Printf("[session] discovery: inspected %d posts, none usable", inspected)
				return e.settle(fbPost, fbText)
			}
		}
		if err := d.Scroll(ctx, discoverScrollPx); err != nil {
			log.Printf("[session] discovery scroll: %v", err)
			return e.settle(fbPost, fbText)
		}
		e.sleep(ctx, e.randomPause())
	}
	log.Printf("[session] discovery: scroll budget spent after %d posts", inspected)
	return e.settle(fbPost, fbText)
}

// settle hands out the fallback candidate on exhaustion, if any survived.
func (e *Engine) settle(post browser.Element, text string) (browser.Element, string) {
	if post != nil {
		log.Printf("[session] discovery: settling for a readable non-ad post")
	}
	return post, text
}

// readableFallback is the last-resort acceptance rule: any non-ad post
// whose text is intact, even when it failed the stricter validation.
func readableFallback(text string) bool {
	if strings.TrimSpace(text) == "" || strings.ContainsRune(text, '�') {
		return false
	}
	return !isPromotional(text)
}

// inspect applies the organic-content filters and text validation to one
// candidate.
func (e *Engine) inspect(ctx context.Context, post browser.Element) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	text, err := e.postText(post)
	if err != nil || text == "" {
		return "", false
	}
	if isPromotional(text) {
		return "", false
	}
	if e.hasOutboundLink(post) {
		return "", false
	}
	if err := ValidateText(text, e.cfg.Language); err != nil {
		log.Printf("[session] discovery: candidate rejected: %v", err)
		return "", false
	}
	return text, true
}

// isPromotional flags ad-like text: one obvious marker, or two softer
// promo phrases together.
func isPromotional(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range obviousPromo {
		if strings.Contains(lower, m) {
			return true
		}
	}
	hits := 0
	for _, kw := range promoKeywords {
		if strings.Contains(lower, kw) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// hasOutboundLink reports whether the post card carries a link leaving the
// platform. Self links (status permalinks, profiles) are fine.
func (e *Engine) hasOutboundLink(post browser.Element) bool {
	card, err := e.locator.LocateIn(post, browser.RolePostLink)
	if err != nil {
		return false
	}
	href, ok, err := card.Attribute("href")
	if err != nil || !ok {
		return false
	}
	return isOutbound(href)
}

func isOutbound(href string) bool {
	if href == "" || strings.HasPrefix(href, "/") {
		return false
	}
	lower := strings.ToLower(href)
	if !strings.HasPrefix(lower, "http") {
		return false
	}
	for _, host := range []string{"x.com", "twitter.com", "t.co"} {
		if strings.Contains(lower, "://"+host+"/") || strings.Contains(lower, "://www."+host+"/") {
			return false
		}
	}
	return true
}

// postText reads the candidate's body text, falling back to the card's own
// text when no dedicated text node exists.
func (e *Engine) postText(post browser.Element) (string, error) {
	if node, err := e.locator.LocateIn(post, browser.RolePostText); err == nil {
		return node.Text()
	}
	return post.Text()
}

// postPermalink extracts the post's status URL from within the card.
func (e *Engine) postPermalink(post browser.Element) string {
	link, err := post.Find(`a[href*="/status/"]`)
	if err != nil {
		return ""
	}
	href, ok, err := link.Attribute("href")
	if err != nil || !ok {
		return ""
	}
	if strings.HasPrefix(href, "/") {
		return "https://x.com" + href
	}
	return href
}
