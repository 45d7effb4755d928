package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

type fakeJobClient struct {
	items     []RawItem
	submitErr error
	statusSeq []string // states returned per Status call
	calls     int
	resultErr error
}

func (f *fakeJobClient) Submit(context.Context, string, int, bool) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "job-1", nil
}

func (f *fakeJobClient) Status(context.Context, string) (*JobStatus, error) {
	state := JobStateSucceeded
	if f.calls < len(f.statusSeq) {
		state = f.statusSeq[f.calls]
	}
	f.calls++
	return &JobStatus{ID: "job-1", State: state, ResultSetID: "rs-1"}, nil
}

func (f *fakeJobClient) Results(context.Context, string, string) ([]RawItem, error) {
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return f.items, nil
}

func newTestScanner(t *testing.T, jobs JobClient) *Scanner {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "alerts.json"))
	s := New(jobs, store, true)
	s.pollInterval = time.Millisecond
	s.pollBudget = time.Second
	return s
}

func TestScan_Scenario(t *testing.T) {
	// 5 raw items for keyword "demo": 2 replies, 1 duplicate by post id,
	// 2 genuinely new.
	jobs := &fakeJobClient{items: []RawItem{
		{ID: "100", Text: "demo launch day", URL: "https://x.com/a/status/100"},
		{ID: "101", Text: "@someone demo is here", URL: "https://x.com/b/status/101"},
		{ID: "102", Text: "trying the demo now", URL: "https://x.com/c/status/102", InReplyToID: "55"},
		{ID: "103", Text: "demo looks rough", URL: "https://x.com/d/status/103"},
		{ID: "104", Text: "old news about demo", URL: "https://x.com/e/status/99999999"},
	}}

	s := newTestScanner(t, jobs)
	if err := s.AddKeyword("demo"); err != nil {
		t.Fatalf("AddKeyword: %v", err)
	}

	// Pre-seed the duplicate by its numeric post id under a different URL.
	state := s.store.Load()
	state.Alerts = append(state.Alerts, Alert{ID: "seed", PostID: "99999999", URL: "https://x.com/other/status/99999999", Keyword: "demo"})
	if err := s.store.Save(state); err != nil {
		t.Fatal(err)
	}

	added, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	got := s.store.Load()
	if got.Stats.Scans != 1 {
		t.Errorf("Scans = %d, want 1", got.Stats.Scans)
	}
	if got.Stats.TotalAlerts != 2 {
		t.Errorf("TotalAlerts = %d, want 2", got.Stats.TotalAlerts)
	}
	if len(got.Alerts) != 3 { // seed + 2 new
		t.Errorf("stored alerts = %d, want 3", len(got.Alerts))
	}
}

func TestScan_DedupeSameItemTwice(t *testing.T) {
	item := RawItem{ID: "200", Text: "demo release", URL: "https://x.com/a/status/200"}
	jobs := &fakeJobClient{items: []RawItem{item}}
	s := newTestScanner(t, jobs)
	_ = s.AddKeyword("demo")

	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Second scan re-observes the same post with an incidental difference.
	jobs.items = []RawItem{{ID: "200", Text: "demo release", URL: "https://x.com/a/status/200", CreatedAt: time.Now()}}
	added, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("second scan added = %d, want 0", added)
	}
	if got := len(s.store.Load().Alerts); got != 1 {
		t.Errorf("stored alerts = %d, want 1", got)
	}
}

func TestScan_NoKeywordsSkips(t *testing.T) {
	jobs := &fakeJobClient{}
	s := newTestScanner(t, jobs)

	added, err := s.Scan(context.Background())
	if err != nil || added != 0 {
		t.Errorf("Scan = %d, %v; want 0, nil", added, err)
	}
	if s.store.Load().Stats.Scans != 0 {
		t.Error("skipped scan should not increment scan count")
	}
}

func TestScan_SubmitFailureLeavesStateUntouched(t *testing.T) {
	jobs := &fakeJobClient{submitErr: errors.New("service down")}
	s := newTestScanner(t, jobs)
	_ = s.AddKeyword("demo")

	if _, err := s.Scan(context.Background()); err == nil {
		t.Fatal("expected scan error")
	}
	got := s.store.Load()
	if got.Stats.Scans != 0 || len(got.Alerts) != 0 {
		t.Errorf("failed scan mutated state: %+v", got.Stats)
	}
}

func TestScan_JobFailedState(t *testing.T) {
	jobs := &fakeJobClient{statusSeq: []string{JobStateRunning, JobStateFailed}}
	s := newTestScanner(t, jobs)
	_ = s.AddKeyword("demo")

	if _, err := s.Scan(context.Background()); err == nil {
		t.Error("expected error for failed job")
	}
}

func TestScan_SynthesizesURL(t *testing.T) {
	jobs := &fakeJobClient{items: []RawItem{
		{ID: "123456789", Text: "demo without url", AuthorHandle: "@tester"},
	}}
	s := newTestScanner(t, jobs)
	_ = s.AddKeyword("demo")

	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	alerts := s.store.Load().Alerts
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0].URL != "https://x.com/tester/status/123456789" {
		t.Errorf("URL = %q", alerts[0].URL)
	}
	if alerts[0].PostID != "123456789" {
		t.Errorf("PostID = %q", alerts[0].PostID)
	}
}

func TestIngest_Cap(t *testing.T) {
	s := newTestScanner(t, &fakeJobClient{})
	state := s.store.Load()
	state.Keywords = []string{"demo"}
	for i := 0; i < MaxAlerts; i++ {
		state.Alerts = append(state.Alerts, Alert{ID: fmt.Sprintf("a%d", i), PostID: fmt.Sprintf("%d", i)})
	}

	added := s.ingest(state, []RawItem{
		{ID: "90000001", Text: "fresh demo post", URL: "https://x.com/a/status/90000001"},
	})
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}
	if len(state.Alerts) != MaxAlerts {
		t.Errorf("alerts = %d, want capped at %d", len(state.Alerts), MaxAlerts)
	}
	if state.Alerts[0].ID != "a1" {
		t.Errorf("oldest alert should be trimmed, first = %s", state.Alerts[0].ID)
	}
	if state.Alerts[len(state.Alerts)-1].PostID != "90000001" {
		t.Error("newest alert should be last")
	}
}

func TestKeywordCRUD(t *testing.T) {
	s := newTestScanner(t, &fakeJobClient{})

	if err := s.AddKeyword("demo"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddKeyword("DEMO"); err != nil {
		t.Fatal(err)
	}
	if got := s.Keywords(); len(got) != 1 {
		t.Errorf("keywords = %v, want single entry", got)
	}

	_ = s.AddKeyword("other")
	if err := s.RemoveKeyword("demo"); err != nil {
		t.Fatal(err)
	}
	got := s.Keywords()
	if len(got) != 1 || got[0] != "other" {
		t.Errorf("keywords = %v, want [other]", got)
	}

	if err := s.AddKeyword("  "); err == nil {
		t.Error("blank keyword should be rejected")
	}
}

func TestPurgeReplies(t *testing.T) {
	s := newTestScanner(t, &fakeJobClient{})
	state := s.store.Load()
	state.Alerts = []Alert{
		{ID: "keep", Text: "original demo post"},
		{ID: "drop", Text: "@handle replying here"},
	}
	if err := s.store.Save(state); err != nil {
		t.Fatal(err)
	}

	removed, err := s.PurgeReplies()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	got := s.store.Load().Alerts
	if len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("alerts after purge = %v", got)
	}
}

func TestSnapshot_Pagination(t *testing.T) {
	s := newTestScanner(t, &fakeJobClient{})
	state := s.store.Load()
	for i := 0; i < 5; i++ {
		state.Alerts = append(state.Alerts, Alert{ID: fmt.Sprintf("a%d", i)})
	}
	_ = s.store.Save(state)

	page, _ := s.Snapshot(0, 2)
	if len(page) != 2 || page[0].ID != "a4" || page[1].ID != "a3" {
		t.Errorf("first page = %v", page)
	}
	page, _ = s.Snapshot(2, 2)
	if len(page) != 2 || page[0].ID != "a2" {
		t.Errorf("second page = %v", page)
	}
}

func TestExtractPostID(t *testing.T) {
	cases := []struct{ url, want string }{
		{"https://x.com/a/status/12345", "12345"},
		{"https://twitter.com/a/statuses/678", "678"},
		{"https://x.com/something/99887766", "99887766"},
		{"https://x.com/profile", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ExtractPostID(c.url); got != c.want {
			t.Errorf("ExtractPostID(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}
