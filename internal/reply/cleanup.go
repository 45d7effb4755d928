package reply

import (
	"strings"
	"unicode"
)

// Stock phrases that give away machine-written replies. Matching is
// case-insensitive substring.
var botPhrases = []string{
	"as an ai",
	"as a language model",
	"i'm here to help",
	"i am here to help",
	"great point!",
	"thanks for sharing",
	"thank you for sharing",
	"i appreciate you sharing",
	"happy to help",
	"let's dive in",
	"in today's fast-paced world",
	"i cannot assist",
	"feel free to",
	"hope this helps",
}

// Slang the personas never use.
var denylistSlang = []string{
	"yolo",
	"slay",
	"no cap",
	"fam",
	"lit af",
	"vibes only",
}

const minReplyLength = 5

// Clean strips quoting, markup, emoji, exclamation marks, em-dashes and
// non-ASCII residue from generated text.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’")

	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '!' || r == '—' || r == '–':
			continue
		case r == '*' || r == '_' || r == '`' || r == '#':
			continue
		case r > unicode.MaxASCII:
			continue
		default:
			sb.WriteRune(r)
		}
	}

	out := strings.Join(strings.Fields(sb.String()), " ")
	return strings.TrimSpace(out)
}

// ShouldReject reports whether cleaned output must be replaced by a
// fallback, with a short reason for the log.
func ShouldReject(s string) (bool, string) {
	if s == "" {
		return true, "empty"
	}
	if len(s) < minReplyLength {
		return true, "too short"
	}
	lower := strings.ToLower(s)
	for _, p := range botPhrases {
		if strings.Contains(lower, p) {
			return true, "bot phrase"
		}
	}
	for _, w := range denylistSlang {
		if containsWord(lower, w) {
			return true, "denylisted slang"
		}
	}
	return false, ""
}

func containsWord(s, w string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isWordRune(rune(s[start-1]))
		afterOK := end == len(s) || !isWordRune(rune(s[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
