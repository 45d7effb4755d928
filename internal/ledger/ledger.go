package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/warblehq/warble/internal/schedule"
)

// MaxRecords caps the ledger at the most recent records.
const MaxRecords = 1000

// Record is one attempted engagement, successful or not.
type Record struct {
	ID          int64
	PostRef     string
	Action      schedule.Action
	ProfileID   string
	Keyword     string
	CommentText string
	ReplyRef    string
	Error       string
	Success     bool
	At          time.Time
}

// Stats are the rolling aggregates folded over the stored records. The
// convenience counters only count successful records; Total counts all.
type Stats struct {
	Total    int
	Likes    int
	Reshares int
	Comments int
	Failures int
	LastAt   time.Time
}

// Ledger is the append-only engagement record store.
type Ledger struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(dbPath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := l.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := l.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (l *Ledger) initSchema() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS engagements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_ref TEXT NOT NULL,
		action TEXT NOT NULL,
		profile_id TEXT NOT NULL,
		keyword TEXT NOT NULL DEFAULT '',
		comment_text TEXT NOT NULL DEFAULT '',
		reply_ref TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL,
		at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("init ledger schema: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Append stores one record and trims everything older than the cap.
func (l *Ledger) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := r.At
	if at.IsZero() {
		at = time.Now()
	}

	success := 0
	if r.Success {
		success = 1
	}
	_, err := l.db.Exec(
		`INSERT INTO engagements (post_ref, action, profile_id, keyword, comment_text, reply_ref, error, success, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PostRef, string(r.Action), r.ProfileID, r.Keyword, r.CommentText, r.ReplyRef, r.Error, success, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	_, err = l.db.Exec(
		`DELETE FROM engagements WHERE id NOT IN (SELECT id FROM engagements ORDER BY id DESC LIMIT ?)`,
		MaxRecords,
	)
	if err != nil {
		return fmt.Errorf("trim ledger: %w", err)
	}
	return nil
}

// Stats folds over every stored record. It is recomputed per call rather
// than kept incrementally, so the ledger rows stay the single source.
func (l *Ledger) Stats() (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(`SELECT action, success, at FROM engagements ORDER BY id`)
	if err != nil {
		return Stats{}, fmt.Errorf("read ledger: %w", err)
	}
	defer rows.Close()

	var s Stats
	for rows.Next() {
		var action string
		var success int
		var atMs int64
		if err := rows.Scan(&action, &success, &atMs); err != nil {
			return Stats{}, fmt.Errorf("scan ledger row: %w", err)
		}

		s.Total++
		at := time.UnixMilli(atMs)
		if at.After(s.LastAt) {
			s.LastAt = at
		}
		if success == 0 {
			s.Failures++
			continue
		}
		switch schedule.Action(action) {
		case schedule.ActionLike:
			s.Likes++
		case schedule.ActionReshare:
			s.Reshares++
		case schedule.ActionComment:
			s.Comments++
		}
	}
	return s, rows.Err()
}

// Recent returns the n most recent records, newest first.
func (l *Ledger) Recent(n int) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(
		`SELECT id, post_ref, action, profile_id, keyword, comment_text, reply_ref, error, success, at
		 FROM engagements ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("read recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var action string
		var success int
		var atMs int64
		if err := rows.Scan(&r.ID, &r.PostRef, &action, &r.ProfileID, &r.Keyword,
			&r.CommentText, &r.ReplyRef, &r.Error, &success, &atMs); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Action = schedule.Action(action)
		r.Success = success == 1
		r.At = time.UnixMilli(atMs)
		out = append(out, r)
	}
	return out, rows.Err()
}
