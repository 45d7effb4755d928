package scanner

import (
	"regexp"
	"strings"
)

var leadingMention = regexp.MustCompile(`^@[A-Za-z0-9_]+`)

// IsReply classifies an item as a reply rather than an original post:
// explicit reply metadata, a leading @mention, quote/retweet markers, or a
// reply-shaped URL.
func IsReply(item RawItem) bool {
	if item.InReplyToID != "" {
		return true
	}

	text := strings.TrimSpace(item.Text)
	if leadingMention.MatchString(text) {
		return true
	}
	if strings.HasPrefix(text, "RT @") {
		return true
	}
	if item.IsQuote || item.IsRetweet {
		return true
	}

	url := strings.ToLower(item.URL)
	if strings.Contains(url, "in_reply_to") || strings.Contains(url, "/replies/") {
		return true
	}

	return false
}
