package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/warblehq/warble/internal/browser"
	"github.com/warblehq/warble/internal/profile"
	"github.com/warblehq/warble/internal/reply"
	"github.com/warblehq/warble/internal/schedule"
)

// Outcome classifies how a run ended. Partial means an action was started
// but could not be confirmed (typed-but-not-submitted, unconfirmed
// reshare); it is neither success nor hard failure. NoAction is a clean
// no-op after exhausting candidates.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomePartial  Outcome = "partial"
	OutcomeNoAction Outcome = "no-action"
	OutcomeFailed   Outcome = "failed"
)

var (
	ErrNotLoggedIn  = errors.New("session is not authenticated")
	ErrProvisioning = errors.New("browser provisioning failed")
)

// RunRequest describes one session run. Targeted runs act on an explicitly
// supplied post and skip warm-up, discovery filtering and cooldowns.
type RunRequest struct {
	Profile       profile.Profile
	Action        schedule.Action
	Targeted      bool
	TargetURL     string
	CustomComment string
	Keyword       string
}

// WarmupStats counts incidental engagements performed during warm-up.
type WarmupStats struct {
	Likes     int
	Reshares  int
	Bookmarks int
}

// Result is the report of one run, always populated even on failure.
type Result struct {
	Outcome      Outcome
	Action       schedule.Action
	PostRef      string
	CommentText  string
	ReplyRef     string
	AlreadyLiked bool
	Note         string
	Duration     time.Duration
	Warmup       WarmupStats
}

// ReplyProvider produces the comment text for comment actions.
type ReplyProvider interface {
	Generate(ctx context.Context, in reply.Input) string
}

// Config tunes the engine's humanizing behavior. Zero values are replaced
// by defaults.
type Config struct {
	HomeURL  string
	Language string

	WarmupMin time.Duration
	WarmupMax time.Duration

	InteractProb float64
	LikeProb     float64
	ReshareProb  float64
	BookmarkProb float64
}

func (c Config) withDefaults() Config {
	if c.HomeURL == "" {
		c.HomeURL = "https://x.com/home"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.WarmupMin == 0 {
		c.WarmupMin = 3 * time.Minute
	}
	if c.WarmupMax == 0 {
		c.WarmupMax = 5 * time.Minute
	}
	if c.InteractProb == 0 {
		c.InteractProb = 0.40
	}
	if c.LikeProb == 0 {
		c.LikeProb = 0.25
	}
	if c.ReshareProb == 0 {
		c.ReshareProb = 0.08
	}
	if c.BookmarkProb == 0 {
		c.BookmarkProb = 0.07
	}
	return c
}

// Engine drives one browser session per run through the full state
// machine: provision, auth check, warm-up, discovery, validation, action,
// teardown.
type Engine struct {
	provisioner browser.Provisioner
	connect     browser.DriverFactory
	locator     *browser.Locator
	replies     ReplyProvider
	cfg         Config

	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

func NewEngine(provisioner browser.Provisioner, connect browser.DriverFactory, locator *browser.Locator, replies ReplyProvider, cfg Config) *Engine {
	return &Engine{
		provisioner: provisioner,
		connect:     connect,
		locator:     locator,
		replies:     replies,
		cfg:         cfg.withDefaults(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:       sleepCtx,
		now:         time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

const (
	provisionTimeout   = 30 * time.Second
	maxNavAttempts     = 3
	navBackoff         = 2 * time.Second
	authMarkerWait     = 10 * time.Second
	actionSelectorWait = 8 * time.Second
)

// Run executes one session end to end. The returned Result is always
// populated; a non-nil error means the run failed (the error is also
// reflected in the result's outcome). The browser session is always torn
// down, on every path.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*Result, error) {
	start := e.now()
	res := &Result{Outcome: OutcomeFailed, Action: req.Action}
	defer func() { res.Duration = e.now().Sub(start) }()

	d, err := e.provision(ctx, req.Profile)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	defer e.teardown(d, req.Profile)

	if err := e.checkAuth(ctx, d); err != nil {
		log.Printf("[session] %s: auth check failed: %v", req.Profile.ID, err)
		return res, err
	}

	if !req.Targeted {
		res.Warmup = e.warmup(ctx, d)
	}

	post, text, err := e.acquireCandidate(ctx, d, req)
	if err != nil {
		return res, err
	}
	if post == nil {
		log.Printf("[session] %s: no usable candidate, ending run without action", req.Profile.ID)
		res.Outcome = OutcomeNoAction
		return res, nil
	}
	res.PostRef = e.postPermalink(post)
	if res.PostRef == "" && req.Targeted {
		res.PostRef = req.TargetURL
	}

	if err := e.execute(ctx, d, req, post, text, res); err != nil {
		return res, err
	}
	return res, nil
}

// provision starts the remote account session and attaches a driver,
// retrying navigation a bounded number of times.
func (e *Engine) provision(ctx context.Context, p profile.Profile) (browser.Driver, error) {
	provCtx, cancel := context.WithTimeout(ctx, provisionTimeout)
	defer cancel()

	remote, err := e.provisioner.Start(provCtx, p.AccountRef)
	if err != nil {
		return nil, err
	}

	d, err := e.connect(ctx, remote.ConnectURL)
	if err != nil {
		e.stopRemote(p)
		return nil, err
	}

	var navErr error
	for attempt := 1; attempt <= maxNavAttempts; attempt++ {
		navErr = d.Navigate(ctx, e.cfg.HomeURL)
		if navErr == nil {
			return d, nil
		}
		log.Printf("[session] %s: navigation attempt %d/%d failed: %v", p.ID, attempt, maxNavAttempts, navErr)
		e.sleep(ctx, navBackoff)
	}

	_ = d.Close()
	e.stopRemote(p)
	return nil, fmt.Errorf("navigate home after %d attempts: %w", maxNavAttempts, navErr)
}

func (e *Engine) teardown(d browser.Driver, p profile.Profile) {
	if err := d.Close(); err != nil {
		log.Printf("[session] %s: close driver: %v", p.ID, err)
	}
	e.stopRemote(p)
}

// stopRemote always runs on a fresh context so teardown survives a
// canceled run context.
func (e *Engine) stopRemote(p profile.Profile) {
	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
	defer cancel()
	if err := e.provisioner.Stop(ctx, p.AccountRef); err != nil {
		log.Printf("[session] %s: stop remote session: %v", p.ID, err)
	}
}

// checkAuth verifies the session shows a known authenticated-UI marker.
func (e *Engine) checkAuth(ctx context.Context, d browser.Driver) error {
	if _, err := e.locator.Locate(ctx, d, browser.RoleAuthMarker, authMarkerWait); err != nil {
		return ErrNotLoggedIn
	}
	return nil
}

// acquireCandidate produces the post to act on: the supplied target for
// targeted runs, a discovered + validated post otherwise. A nil post with
// nil error means candidates were exhausted cleanly.
func (e *Engine) acquireCandidate(ctx context.Context, d browser.Driver, req RunRequest) (browser.Element, string, error) {
	if req.Targeted {
		if err := d.Navigate(ctx, req.TargetURL); err != nil {
			return nil, "", fmt.Errorf("navigate target: %w", err)
		}
		post, err := e.locator.Locate(ctx, d, browser.RolePost, actionSelectorWait)
		if err != nil {
			return nil, "", fmt.Errorf("target post not found: %w", err)
		}
		// The target was explicitly supplied; no ad or promo filtering.
		text, _ := e.postText(post)
		return post, text, nil
	}

	post, text := e.discover(ctx, d)
	return post, text, nil
}
