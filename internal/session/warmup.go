package session

import (
	"context"
	"log"
	"time"

	"github.com/warblehq/warble/internal/browser"
)

const (
	warmupScrollMin = 200
	warmupScrollMax = 800
	warmupPauseMin  = 2 * time.Second
	warmupPauseMax  = 5 * time.Second
	warmupEngageMin = 3
	warmupEngageMax = 8
)

// warmup browses the feed like a person for a few minutes before the real
// action: scroll bursts and reading pauses fill the whole warm-up window,
// with occasional low-stakes engagements on freshly revealed posts up to a
// target count drawn once per session.
func (e *Engine) warmup(ctx context.Context, d browser.Driver) WarmupStats {
	var stats WarmupStats

	span := e.cfg.WarmupMin
	if e.cfg.WarmupMax > e.cfg.WarmupMin {
		span += time.Duration(e.rng.Int63n(int64(e.cfg.WarmupMax - e.cfg.WarmupMin)))
	}
	deadline := e.now().Add(span)
	target := warmupEngageMin + e.rng.Intn(warmupEngageMax-warmupEngageMin+1)

	seen := map[string]bool{}
	for e.now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		px := warmupScrollMin + e.rng.Intn(warmupScrollMax-warmupScrollMin+1)
		if err := d.Scroll(ctx, px); err != nil {
			log.Printf("[session] warmup scroll: %v", err)
			break
		}
		e.sleep(ctx, e.randomPause())

		posts, err := e.locator.LocateAll(ctx, d, browser.RolePost)
		if err != nil {
			continue
		}
		for _, post := range posts {
			ref := e.postPermalink(post)
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			// Hitting the target stops the engaging, not the browsing.
			if stats.total() < target {
				e.maybeEngage(ctx, post, &stats)
			}
		}
	}

	log.Printf("[session] warmup done: %d likes, %d reshares, %d bookmarks over %d fresh posts",
		stats.Likes, stats.Reshares, stats.Bookmarks, len(seen))
	return stats
}

func (w WarmupStats) total() int { return w.Likes + w.Reshares + w.Bookmarks }

func (e *Engine) randomPause() time.Duration {
	return warmupPauseMin + time.Duration(e.rng.Int63n(int64(warmupPauseMax-warmupPauseMin)))
}

// maybeEngage rolls the overall interaction gate first, then one engagement
// kind at most per post.
func (e *Engine) maybeEngage(ctx context.Context, post browser.Element, stats *WarmupStats) {
	if ctx.Err() != nil || e.rng.Float64() >= e.cfg.InteractProb {
		return
	}
	switch roll := e.rng.Float64(); {
	case roll < e.cfg.LikeProb:
		if el, err := e.locator.LocateIn(post, browser.RoleLike); err == nil {
			if el.Click() == nil {
				stats.Likes++
			}
		}
	case roll < e.cfg.LikeProb+e.cfg.ReshareProb:
		if e.resharePost(post) == nil {
			stats.Reshares++
		}
	case roll < e.cfg.LikeProb+e.cfg.ReshareProb+e.cfg.BookmarkProb:
		if el, err := e.locator.LocateIn(post, browser.RoleBookmark); err == nil {
			if el.Click() == nil {
				stats.Bookmarks++
			}
		}
	}
}
