package browser

import (
	"context"
	"fmt"
	"time"
)

// Role names a logical UI capability. Each role maps to an ordered list of
// selector candidates that are tried until one matches, which hides the
// platform's markup churn from the session engine.
type Role string

const (
	RoleAuthMarker     Role = "auth-marker"
	RolePost           Role = "post"
	RolePostText       Role = "post-text"
	RolePostImage      Role = "post-image"
	RolePostLink       Role = "post-link"
	RoleLike           Role = "like"
	RoleUnlike         Role = "unlike"
	RoleReshare        Role = "reshare"
	RoleReshareConfirm Role = "reshare-confirm"
	RoleBookmark       Role = "bookmark"
	RoleReplyOpen      Role = "reply-open"
	RoleComposer       Role = "composer"
	RoleSubmit         Role = "submit"
	RoleReplyMarker    Role = "reply-marker"
	RoleTimestamp      Role = "timestamp"
)

// Locator resolves roles to elements through per-role selector strategies.
type Locator struct {
	strategies map[Role][]string
}

// NewLocator builds a locator with the default strategy table.
func NewLocator() *Locator {
	return &Locator{strategies: defaultStrategies()}
}

// NewLocatorWithStrategies builds a locator from an explicit table, for
// tests and for platform overrides.
func NewLocatorWithStrategies(strategies map[Role][]string) *Locator {
	return &Locator{strategies: strategies}
}

func defaultStrategies() map[Role][]string {
	return map[Role][]string{
		RoleAuthMarker: {
			`[data-testid="SideNav_AccountSwitcher_Button"]`,
			`[data-testid="AppTabBar_Profile_Link"]`,
			`a[aria-label="Profile"]`,
		},
		RolePost: {
			`article[data-testid="tweet"]`,
			`article[role="article"]`,
			`div[data-testid="cellInnerDiv"] article`,
		},
		RolePostText: {
			`[data-testid="tweetText"]`,
			`div[lang]`,
		},
		RolePostImage: {
			`[data-testid="tweetPhoto"] img`,
			`img[alt="Image"]`,
		},
		RolePostLink: {
			`a[href^="http"]:not([href*="/status/"])`,
		},
		RoleLike: {
			`[data-testid="like"]`,
			`button[aria-label*="Like"]`,
		},
		RoleUnlike: {
			`[data-testid="unlike"]`,
			`button[aria-label*="Liked"]`,
		},
		RoleReshare: {
			`[data-testid="retweet"]`,
			`button[aria-label*="Repost"]`,
		},
		RoleReshareConfirm: {
			`[data-testid="retweetConfirm"]`,
			`div[role="menuitem"][data-testid="retweetConfirm"]`,
		},
		RoleBookmark: {
			`[data-testid="bookmark"]`,
			`button[aria-label*="Bookmark"]`,
		},
		RoleReplyOpen: {
			`[data-testid="reply"]`,
			`button[aria-label*="Reply"]`,
		},
		RoleComposer: {
			`[data-testid="tweetTextarea_0"]`,
			`div[role="textbox"][contenteditable="true"]`,
		},
		RoleSubmit: {
			`[data-testid="tweetButton"]`,
			`[data-testid="tweetButtonInline"]`,
			`button[type="submit"]`,
		},
		RoleReplyMarker: {
			`[data-testid="socialContext"]`,
		},
		RoleTimestamp: {
			`time`,
		},
	}
}

// Locate tries the role's selectors in order until one yields an element
// within the wait budget, spread across the candidates.
func (l *Locator) Locate(ctx context.Context, d Driver, role Role, wait time.Duration) (Element, error) {
	selectors := l.strategies[role]
	if len(selectors) == 0 {
		return nil, fmt.Errorf("locate %s: no selectors registered", role)
	}

	per := wait / time.Duration(len(selectors))
	if per < time.Second {
		per = time.Second
	}

	var lastErr error
	for _, sel := range selectors {
		el, err := d.Find(ctx, sel, per)
		if err == nil {
			return el, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("locate %s: all selectors failed: %w", role, lastErr)
}

// LocateAll returns every current match for the role's first selector that
// yields anything; it does not wait.
func (l *Locator) LocateAll(ctx context.Context, d Driver, role Role) ([]Element, error) {
	selectors := l.strategies[role]
	if len(selectors) == 0 {
		return nil, fmt.Errorf("locate all %s: no selectors registered", role)
	}

	var lastErr error
	for _, sel := range selectors {
		els, err := d.FindAll(ctx, sel)
		if err != nil {
			lastErr = err
			continue
		}
		if len(els) > 0 {
			return els, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("locate all %s: %w", role, lastErr)
	}
	return nil, nil
}

// LocateIn resolves a role inside a container element, trying the role's
// selectors in order without waiting.
func (l *Locator) LocateIn(container Element, role Role) (Element, error) {
	selectors := l.strategies[role]
	if len(selectors) == 0 {
		return nil, fmt.Errorf("locate %s in element: no selectors registered", role)
	}

	var lastErr error
	for _, sel := range selectors {
		el, err := container.Find(sel)
		if err == nil {
			return el, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("locate %s in element: %w", role, lastErr)
}

// Selectors exposes the strategy list for a role.
func (l *Locator) Selectors(role Role) []string {
	return l.strategies[role]
}
