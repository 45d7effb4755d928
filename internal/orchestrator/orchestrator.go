package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/warblehq/warble/internal/browser"
	"github.com/warblehq/warble/internal/bus"
	"github.com/warblehq/warble/internal/config"
	"github.com/warblehq/warble/internal/coordinator"
	"github.com/warblehq/warble/internal/ledger"
	"github.com/warblehq/warble/internal/notify"
	"github.com/warblehq/warble/internal/profile"
	"github.com/warblehq/warble/internal/reply"
	"github.com/warblehq/warble/internal/scanner"
	"github.com/warblehq/warble/internal/schedule"
	"github.com/warblehq/warble/internal/session"
)

// SessionRunner interface for the session engine (allows mocking in tests)
type SessionRunner interface {
	Run(ctx context.Context, req session.RunRequest) (*session.Result, error)
}

// Options for creating an Orchestrator
type Options struct {
	Runner     SessionRunner
	JobClient  scanner.JobClient
	Notifier   *notify.Notifier
	SignalChan chan os.Signal // for testing signal handling
	Seed       int64
}

// staleGrace is how long a session may sit in running state before a
// restart writes it off as interrupted.
const staleGrace = 30 * time.Minute

type Orchestrator struct {
	cfg    *config.Config
	roster []profile.Profile

	store  *schedule.Store
	gen    *schedule.Generator
	coord  *coordinator.Coordinator
	runner SessionRunner
	scan   *scanner.Scanner
	led    *ledger.Ledger
	events *bus.Bus

	notifier   *notify.Notifier
	cron       *cron.Cron
	signalChan chan os.Signal

	mu  sync.Mutex // guards schedule load/modify/save
	now func() time.Time
}

// New creates an Orchestrator with default options
func New(cfg *config.Config) (*Orchestrator, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates an Orchestrator with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Orchestrator, error) {
	roster, err := profile.LoadRoster(cfg.Storage.RosterPath)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	o := &Orchestrator{
		cfg:        cfg,
		roster:     roster,
		store:      schedule.NewStore(cfg.SchedulePath()),
		gen:        schedule.NewGenerator(seed),
		coord:      coordinator.New(minutes(cfg.Coordinator.CooldownMin), minutes(cfg.Coordinator.SpacingMin)),
		events:     bus.New(),
		signalChan: opts.SignalChan,
		now:        time.Now,
	}

	o.runner = opts.Runner
	if o.runner == nil {
		runner, err := buildEngine(cfg)
		if err != nil {
			return nil, err
		}
		o.runner = runner
	}

	jobs := opts.JobClient
	if jobs == nil {
		jobs = scanner.NewHTTPJobClient(cfg.Scanner.BaseURL, cfg.Scanner.Token)
	}
	o.scan = scanner.New(jobs, scanner.NewStore(cfg.ScannerStatePath()), true)
	o.scan.SetResultLimit(cfg.Scanner.ResultLimit)

	led, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	o.led = led

	o.notifier = opts.Notifier
	if o.notifier == nil && cfg.Telegram.Enabled {
		n, err := notify.NewNotifier(cfg.Telegram)
		if err != nil {
			log.Printf("[orchestrator] telegram notifier disabled: %v", err)
		} else {
			o.notifier = n
		}
	}

	return o, nil
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

func buildEngine(cfg *config.Config) (SessionRunner, error) {
	if cfg.Provisioner.BaseURL == "" {
		return nil, fmt.Errorf("provisioner base url is required")
	}

	replyClient, err := reply.NewGeminiClient(context.Background(), cfg.Reply.APIKey, cfg.Reply.Model)
	if err != nil {
		return nil, fmt.Errorf("create reply client: %w", err)
	}

	prov := &browser.ProvisionClient{
		BaseURL:    cfg.Provisioner.BaseURL,
		Token:      cfg.Provisioner.Token,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}

	engine := session.NewEngine(prov, browser.Connect, browser.NewLocator(), reply.NewGenerator(replyClient), session.Config{
		HomeURL:  cfg.Engine.HomeURL,
		Language: cfg.Engine.Language,
	})
	return engine, nil
}

// Reconcile restores a sane schedule on startup: interrupted runs are
// written off, cooldown clocks are rebuilt from completed sessions, and an
// expired or missing schedule is regenerated.
func (o *Orchestrator) Reconcile() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	sched, err := o.store.Load()
	if err != nil {
		log.Printf("[orchestrator] schedule unreadable, regenerating: %v", err)
		sched = nil
	}

	now := o.now()
	if sched != nil {
		changed := false
		for i := range sched.Sessions {
			s := &sched.Sessions[i]
			if s.Status != schedule.StatusRunning {
				continue
			}
			if s.StartedAt != nil && now.Sub(*s.StartedAt) < staleGrace {
				s.Status = schedule.StatusScheduled
				s.StartedAt = nil
			} else {
				s.Status = schedule.StatusFailed
				s.Outcome = &schedule.Outcome{Action: s.Action, Error: "interrupted by restart"}
			}
			changed = true
		}
		if changed {
			if err := o.store.Save(sched); err != nil {
				return fmt.Errorf("save reconciled schedule: %w", err)
			}
			log.Printf("[orchestrator] reconciled interrupted sessions")
		}
	}

	if schedule.NeedsRegeneration(sched, now) {
		if _, err := o.regenerateLocked(now); err != nil {
			return err
		}
	} else {
		o.coord.RebuildCooldowns(sched)
	}
	return nil
}

func (o *Orchestrator) regenerateLocked(now time.Time) (*schedule.Schedule, error) {
	sched, err := o.gen.Generate(o.roster, now)
	if err != nil {
		return nil, fmt.Errorf("generate schedule: %w", err)
	}
	if err := o.store.Save(sched); err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}
	o.coord.RebuildCooldowns(sched)
	log.Printf("[orchestrator] generated schedule: %d sessions across %d profiles, expires %s",
		len(sched.Sessions), sched.ProfileCount, sched.ExpiresAt.Format(time.RFC3339))
	o.events.Publish(bus.Event{Type: bus.EventSchedule, Schedule: &bus.ScheduleNote{
		Sessions:  len(sched.Sessions),
		Profiles:  sched.ProfileCount,
		ExpiresAt: sched.ExpiresAt,
	}})
	return sched, nil
}

// ExecutorTick is one pass of the scheduled-session executor: refresh the
// schedule if needed, pick the next due session, and launch it.
func (o *Orchestrator) ExecutorTick(ctx context.Context) {
	o.mu.Lock()
	sched, err := o.store.Load()
	if err != nil {
		o.mu.Unlock()
		log.Printf("[orchestrator] load schedule: %v", err)
		return
	}
	now := o.now()
	if schedule.NeedsRegeneration(sched, now) {
		if sched, err = o.regenerateLocked(now); err != nil {
			o.mu.Unlock()
			log.Printf("[orchestrator] %v", err)
			return
		}
	}

	next, due := o.coord.NextDue(sched, now)
	if next == nil {
		o.mu.Unlock()
		return
	}
	if !due {
		o.mu.Unlock()
		log.Printf("[orchestrator] next session %s for %s at %s",
			next.ID, next.ProfileID, next.ScheduledAt.Format("15:04:05"))
		return
	}
	if !o.coord.CanExecuteGlobally(now, false) {
		o.mu.Unlock()
		return
	}
	if !o.coord.MarkExecuting(next.ProfileID) {
		o.mu.Unlock()
		return
	}

	s := sched.FindSession(next.ID)
	s.Status = schedule.StatusRunning
	started := now
	s.StartedAt = &started
	if err := o.store.Save(sched); err != nil {
		log.Printf("[orchestrator] save schedule: %v", err)
	}
	run := *s
	o.mu.Unlock()

	go o.runScheduled(ctx, run)
}

func (o *Orchestrator) runScheduled(ctx context.Context, sess schedule.Session) {
	p, ok := profile.ByID(o.roster, sess.ProfileID)
	if !ok {
		log.Printf("[orchestrator] session %s references unknown profile %s", sess.ID, sess.ProfileID)
		o.coord.Release(sess.ProfileID)
		return
	}

	log.Printf("[orchestrator] running session %s: %s %s", sess.ID, p.ID, sess.Action)
	res, err := o.runner.Run(ctx, session.RunRequest{
		Profile: p,
		Action:  sess.Action,
	})
	o.finishRun(sess.ID, p, sess.Action, "", res, err)
}

// finishRun folds a run result back into the schedule, the coordinator
// clocks, the ledger, and the event stream. A provisioning failure never
// drove the account, so it releases the profile without starting a
// cooldown.
func (o *Orchestrator) finishRun(sessionID string, p profile.Profile, action schedule.Action, keyword string, res *session.Result, err error) {
	now := o.now()
	if err != nil && errors.Is(err, session.ErrProvisioning) {
		o.coord.Release(p.ID)
	} else {
		o.coord.MarkComplete(p.ID, now)
	}

	if sessionID != "" {
		o.mu.Lock()
		if sched, loadErr := o.store.Load(); loadErr == nil && sched != nil {
			if s := sched.FindSession(sessionID); s != nil {
				done := now
				s.CompletedAt = &done
				if err != nil {
					s.Status = schedule.StatusFailed
				} else {
					s.Status = schedule.StatusCompleted
				}
				s.Outcome = outcomeFor(action, res, err)
				if saveErr := o.store.Save(sched); saveErr != nil {
					log.Printf("[orchestrator] save schedule: %v", saveErr)
				}
			}
		}
		o.mu.Unlock()
	}

	report := &bus.SessionReport{
		ProfileID: p.ID,
		SessionID: sessionID,
		Action:    action,
	}
	if err != nil {
		report.Err = err.Error()
		report.Outcome = string(session.OutcomeFailed)
		log.Printf("[orchestrator] session for %s failed: %v", p.ID, err)
	}
	if res != nil {
		report.Outcome = string(res.Outcome)
		report.PostRef = res.PostRef
		report.CommentText = res.CommentText
		report.ReplyRef = res.ReplyRef
		report.Duration = res.Duration
	}
	o.events.Publish(bus.Event{Type: bus.EventSessionDone, Session: report})

	// A clean no-action run touched nothing, so the ledger skips it.
	if res != nil && res.Outcome == session.OutcomeNoAction {
		return
	}
	rec := ledger.Record{
		ProfileID: p.ID,
		Action:    action,
		Keyword:   keyword,
		Success:   err == nil && res != nil && res.Outcome == session.OutcomeSuccess,
		At:        now,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if res != nil {
		rec.PostRef = res.PostRef
		rec.CommentText = res.CommentText
		rec.ReplyRef = res.ReplyRef
		if res.Outcome == session.OutcomePartial && rec.Error == "" {
			rec.Error = res.Note
		}
	}
	if appendErr := o.led.Append(rec); appendErr != nil {
		log.Printf("[orchestrator] ledger append: %v", appendErr)
	}
}

func outcomeFor(action schedule.Action, res *session.Result, err error) *schedule.Outcome {
	out := &schedule.Outcome{Action: action}
	if err != nil {
		out.Error = err.Error()
	}
	if res != nil {
		out.CommentText = res.CommentText
		out.ReplyRef = res.ReplyRef
		out.Duration = res.Duration
		out.WarmupLikes = res.Warmup.Likes
		out.WarmupReshares = res.Warmup.Reshares
		out.WarmupBookmarks = res.Warmup.Bookmarks
		if res.Outcome != session.OutcomeSuccess && out.Error == "" {
			out.Error = res.Note
		}
	}
	return out
}

// ExecutePost runs a targeted action on an explicit post right now,
// bypassing the schedule, cooldowns, and global spacing. Only the mutual
// exclusion per profile still holds.
func (o *Orchestrator) ExecutePost(ctx context.Context, profileID string, action schedule.Action, postURL, comment, keyword string) (*session.Result, error) {
	p, ok := profile.ByID(o.roster, profileID)
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", profileID)
	}
	if !o.coord.MarkExecuting(p.ID) {
		return nil, fmt.Errorf("profile %s already has a session in flight", p.ID)
	}

	log.Printf("[orchestrator] targeted %s on %s as %s", action, postURL, p.ID)
	res, err := o.runner.Run(ctx, session.RunRequest{
		Profile:       p,
		Action:        action,
		Targeted:      true,
		TargetURL:     postURL,
		CustomComment: comment,
		Keyword:       keyword,
	})
	o.finishRun("", p, action, keyword, res, err)
	return res, err
}

// ScanTick runs one keyword scan cycle and announces new alerts.
func (o *Orchestrator) ScanTick(ctx context.Context) {
	added, err := o.scan.Scan(ctx)
	if err != nil {
		log.Printf("[orchestrator] scan: %v", err)
		return
	}
	if added == 0 {
		return
	}
	_, stats := o.scan.Snapshot(0, 0)
	o.events.Publish(bus.Event{Type: bus.EventAlerts, Alerts: &bus.AlertBatch{
		Keywords: o.scan.Keywords(),
		Added:    added,
		Total:    stats.TotalAlerts,
	}})
}

// Scanner exposes the keyword scanner for CLI subcommands.
func (o *Orchestrator) Scanner() *scanner.Scanner { return o.scan }

// Ledger exposes the engagement ledger for CLI subcommands.
func (o *Orchestrator) Ledger() *ledger.Ledger { return o.led }

// Status is a point-in-time view for the status command.
type Status struct {
	Profiles     int
	Sessions     int
	Completed    int
	Failed       int
	NextSession  *schedule.Session
	ScheduleEnds time.Time
	Scan         scanner.Stats
	Engagements  ledger.Stats
}

func (o *Orchestrator) Status() (*Status, error) {
	o.mu.Lock()
	sched, err := o.store.Load()
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}

	st := &Status{Profiles: len(o.roster)}
	if sched != nil {
		st.Sessions = len(sched.Sessions)
		st.ScheduleEnds = sched.ExpiresAt
		for i := range sched.Sessions {
			switch sched.Sessions[i].Status {
			case schedule.StatusCompleted:
				st.Completed++
			case schedule.StatusFailed:
				st.Failed++
			}
		}
		next, _ := o.coord.NextDue(sched, o.now())
		st.NextSession = next
	}
	_, st.Scan = o.scan.Snapshot(0, 0)
	if stats, err := o.led.Stats(); err == nil {
		st.Engagements = stats
	}
	return st, nil
}

// Run starts the executor and scan tickers and blocks until a shutdown
// signal arrives.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if o.notifier != nil {
		if err := o.notifier.Start(ctx, o.events.Subscribe()); err != nil {
			log.Printf("[orchestrator] notifier start warning: %v", err)
		}
	}

	if err := o.Reconcile(); err != nil {
		return err
	}

	o.cron = cron.New()
	if _, err := o.cron.AddFunc(fmt.Sprintf("@every %ds", o.cfg.Coordinator.ExecutorTickSec), func() {
		o.ExecutorTick(ctx)
	}); err != nil {
		return fmt.Errorf("schedule executor tick: %w", err)
	}
	if _, err := o.cron.AddFunc(fmt.Sprintf("@every %dm", o.cfg.Scanner.IntervalMin), func() {
		o.ScanTick(ctx)
	}); err != nil {
		return fmt.Errorf("schedule scan tick: %w", err)
	}
	o.cron.Start()

	log.Printf("[orchestrator] running: %d profiles, executor every %ds, scan every %dm",
		len(o.roster), o.cfg.Coordinator.ExecutorTickSec, o.cfg.Scanner.IntervalMin)

	sigCh := o.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Printf("[orchestrator] shutting down...")
	return o.Shutdown()
}

func (o *Orchestrator) Shutdown() error {
	if o.cron != nil {
		<-o.cron.Stop().Done()
	}
	if o.notifier != nil {
		o.notifier.Stop()
	}
	o.events.Close()
	if err := o.led.Close(); err != nil {
		log.Printf("[orchestrator] close ledger warning: %v", err)
	}
	log.Printf("[orchestrator] shutdown complete")
	return nil
}
