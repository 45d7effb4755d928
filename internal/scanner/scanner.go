package scanner

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxAlerts caps stored alerts; oldest entries are trimmed first.
	MaxAlerts = 1000

	defaultResultLimit = 100
	pollInterval       = 5 * time.Second
	pollBudget         = 5 * time.Minute
)

// Scanner periodically submits tracked keywords to the scraping job
// service and ingests genuinely new matching posts as alerts.
type Scanner struct {
	jobs  JobClient
	store *Store

	excludeReplies bool
	resultLimit    int

	pollInterval time.Duration
	pollBudget   time.Duration
	now          func() time.Time
}

func New(jobs JobClient, store *Store, excludeReplies bool) *Scanner {
	return &Scanner{
		jobs:           jobs,
		store:          store,
		excludeReplies: excludeReplies,
		resultLimit:    defaultResultLimit,
		pollInterval:   pollInterval,
		pollBudget:     pollBudget,
		now:            time.Now,
	}
}

// SetResultLimit overrides how many items each scrape job may return.
func (s *Scanner) SetResultLimit(n int) {
	if n > 0 {
		s.resultLimit = n
	}
}

// Scan runs one full scan cycle. A scraping failure aborts only this cycle
// and leaves the stored state untouched; the next tick retries.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	state := s.store.Load()
	if len(state.Keywords) == 0 {
		log.Printf("[scanner] no tracked keywords, skipping scan")
		return 0, nil
	}

	query := strings.Join(state.Keywords, " OR ")
	jobID, err := s.jobs.Submit(ctx, query, s.resultLimit, s.excludeReplies)
	if err != nil {
		return 0, fmt.Errorf("scan: %w", err)
	}
	log.Printf("[scanner] submitted job %s for %d keywords", jobID, len(state.Keywords))

	status, err := s.waitForJob(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("scan: %w", err)
	}

	items, err := s.jobs.Results(ctx, jobID, status.ResultSetID)
	if err != nil {
		return 0, fmt.Errorf("scan: %w", err)
	}

	added := s.ingest(state, items)
	state.Stats.Scans++
	if err := s.store.Save(state); err != nil {
		return added, fmt.Errorf("scan: save state: %w", err)
	}
	log.Printf("[scanner] scan complete: %d raw items, %d new alerts", len(items), added)
	return added, nil
}

func (s *Scanner) waitForJob(ctx context.Context, jobID string) (*JobStatus, error) {
	deadline := s.now().Add(s.pollBudget)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		status, err := s.jobs.Status(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch status.State {
		case JobStateSucceeded:
			return status, nil
		case JobStateFailed, JobStateAborted:
			return nil, fmt.Errorf("job %s ended in state %s", jobID, status.State)
		}

		if s.now().After(deadline) {
			return nil, fmt.Errorf("job %s timed out after %v", jobID, s.pollBudget)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ingest filters, deduplicates and appends raw items, updating rolling
// statistics and enforcing the alert cap.
func (s *Scanner) ingest(state *State, items []RawItem) int {
	seenURL := make(map[string]bool, len(state.Alerts))
	seenPost := make(map[string]bool, len(state.Alerts))
	for _, a := range state.Alerts {
		if a.URL != "" {
			seenURL[a.URL] = true
		}
		if a.PostID != "" {
			seenPost[a.PostID] = true
		}
	}

	added := 0
	for _, item := range items {
		if s.excludeReplies && IsReply(item) {
			continue
		}
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}

		keyword := matchKeyword(state.Keywords, text)
		if keyword == "" {
			continue
		}

		url := item.URL
		if url == "" && item.ID != "" {
			url = synthesizeURL(item)
		}
		postID := ExtractPostID(url)
		if postID == "" {
			postID = item.ID
		}

		if (url != "" && seenURL[url]) || (postID != "" && seenPost[postID]) {
			continue
		}

		state.Alerts = append(state.Alerts, Alert{
			ID:       uuid.NewString(),
			Keyword:  keyword,
			PostID:   postID,
			URL:      url,
			Text:     text,
			Author:   item.AuthorName,
			Handle:   item.AuthorHandle,
			Verified: item.Verified,
			HasImage: item.HasImage,
			HasCard:  item.HasCard,
			PostedAt: item.CreatedAt,
			FoundAt:  s.now(),
			Status:   AlertStatusNew,
		})
		if url != "" {
			seenURL[url] = true
		}
		if postID != "" {
			seenPost[postID] = true
		}
		added++
	}

	if added > 0 {
		state.Stats.TotalAlerts += added
		state.Stats.LastAlertAt = s.now()
	}
	if len(state.Alerts) > MaxAlerts {
		state.Alerts = state.Alerts[len(state.Alerts)-MaxAlerts:]
	}
	return added
}

// matchKeyword returns the first tracked keyword contained in text,
// case-insensitive, or "".
func matchKeyword(keywords []string, text string) string {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return k
		}
	}
	return ""
}

var statusIDPattern = regexp.MustCompile(`/status(?:es)?/(\d+)`)
var trailingDigits = regexp.MustCompile(`(\d{8,})`)

// ExtractPostID pulls the numeric post id out of a post URL.
func ExtractPostID(url string) string {
	if url == "" {
		return ""
	}
	if m := statusIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := trailingDigits.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

func synthesizeURL(item RawItem) string {
	handle := item.AuthorHandle
	if handle == "" {
		handle = "i"
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", strings.TrimPrefix(handle, "@"), item.ID)
}

// PurgeReplies re-applies the reply detector to stored alerts, dropping
// entries that would no longer pass ingestion. Useful after the reply
// filter setting changed.
func (s *Scanner) PurgeReplies() (int, error) {
	state := s.store.Load()

	kept := state.Alerts[:0]
	removed := 0
	for _, a := range state.Alerts {
		item := RawItem{Text: a.Text, URL: a.URL}
		if IsReply(item) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	state.Alerts = kept

	if removed > 0 {
		if err := s.store.Save(state); err != nil {
			return removed, fmt.Errorf("purge replies: %w", err)
		}
		log.Printf("[scanner] purged %d stored reply alerts", removed)
	}
	return removed, nil
}

// AddKeyword starts tracking a keyword. Adding an existing keyword is a
// no-op.
func (s *Scanner) AddKeyword(keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return fmt.Errorf("keyword is empty")
	}

	state := s.store.Load()
	for _, k := range state.Keywords {
		if strings.EqualFold(k, keyword) {
			return nil
		}
	}
	state.Keywords = append(state.Keywords, keyword)
	return s.store.Save(state)
}

// RemoveKeyword stops tracking a keyword.
func (s *Scanner) RemoveKeyword(keyword string) error {
	state := s.store.Load()
	kept := state.Keywords[:0]
	for _, k := range state.Keywords {
		if !strings.EqualFold(k, keyword) {
			kept = append(kept, k)
		}
	}
	state.Keywords = kept
	return s.store.Save(state)
}

// Keywords lists tracked keywords.
func (s *Scanner) Keywords() []string {
	return s.store.Load().Keywords
}

// Snapshot returns a page of alerts (newest first) plus statistics.
func (s *Scanner) Snapshot(offset, limit int) ([]Alert, Stats) {
	state := s.store.Load()

	n := len(state.Alerts)
	out := make([]Alert, 0, limit)
	for i := n - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, state.Alerts[i])
	}
	return out, state.Stats
}

// MarkProcessed flips an alert to processed after it has been acted on.
func (s *Scanner) MarkProcessed(alertID string) error {
	state := s.store.Load()
	for i := range state.Alerts {
		if state.Alerts[i].ID == alertID {
			state.Alerts[i].Status = AlertStatusProcessed
			return s.store.Save(state)
		}
	}
	return fmt.Errorf("alert %s not found", alertID)
}
