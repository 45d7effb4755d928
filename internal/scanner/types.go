package scanner

import "time"

// Alert is a discovered post matching a tracked keyword.
type Alert struct {
	ID        string    `json:"id"`
	Keyword   string    `json:"keyword"`
	PostID    string    `json:"postId"`
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Handle    string    `json:"handle"`
	Verified  bool      `json:"verified"`
	HasImage  bool      `json:"hasImage"`
	HasCard   bool      `json:"hasCard"`
	PostedAt  time.Time `json:"postedAt"`
	FoundAt   time.Time `json:"foundAt"`
	Status    string    `json:"status"` // "new" or "processed"
}

const (
	AlertStatusNew       = "new"
	AlertStatusProcessed = "processed"
)

// Stats are the rolling scan statistics.
type Stats struct {
	Scans       int       `json:"scans"`
	TotalAlerts int       `json:"totalAlerts"`
	LastAlertAt time.Time `json:"lastAlertAt,omitempty"`
}

// State is the persisted alert container: tracked keywords, the capped
// alert list, and rolling statistics. It is read-modify-written wholesale.
type State struct {
	CreatedAt time.Time `json:"createdAt"`
	Keywords  []string  `json:"keywords"`
	Alerts    []Alert   `json:"alerts"`
	Stats     Stats     `json:"stats"`
}

// RawItem is one post as returned by the scraping job service.
type RawItem struct {
	ID           string    `json:"id"`
	Text         string    `json:"full_text"`
	URL          string    `json:"url"`
	AuthorName   string    `json:"author_name"`
	AuthorHandle string    `json:"author_handle"`
	Verified     bool      `json:"verified"`
	HasImage     bool      `json:"has_image"`
	HasCard      bool      `json:"has_card"`
	CreatedAt    time.Time `json:"created_at"`
	InReplyToID  string    `json:"in_reply_to_status_id"`
	IsQuote      bool      `json:"is_quote_status"`
	IsRetweet    bool      `json:"is_retweet"`
}
