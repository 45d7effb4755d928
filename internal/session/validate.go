package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	minPostLength = 10
	maxPostLength = 2000

	// Share of letters that must belong to the expected script, and share
	// of runes that must be readable at all.
	languageRatioMin = 0.6
	readableRatioMin = 0.8
)

var (
	errTextCorrupt     = errors.New("text contains replacement characters")
	errTextUnreadable  = errors.New("text is mostly unreadable")
	errWrongLanguage   = errors.New("text is not in the expected language")
	errTextOutOfBounds = errors.New("text length out of bounds")
)

// ValidateText decides whether post text is safe to hand to the comment
// generator: not corrupted, within length bounds, readable, and
// predominantly in the expected language.
func ValidateText(text, language string) error {
	if strings.ContainsRune(text, '�') {
		return errTextCorrupt
	}
	trimmed := strings.TrimSpace(text)
	if n := len([]rune(trimmed)); n < minPostLength || n > maxPostLength {
		return fmt.Errorf("%w: %d runes", errTextOutOfBounds, n)
	}

	var total, readable, letters, scriptLetters int
	for _, r := range trimmed {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			readable++
		}
		if unicode.IsLetter(r) {
			letters++
			if inScript(r, language) {
				scriptLetters++
			}
		}
	}
	if total == 0 || float64(readable)/float64(total) < readableRatioMin {
		return errTextUnreadable
	}
	if letters > 0 && float64(scriptLetters)/float64(letters) < languageRatioMin {
		return errWrongLanguage
	}
	return nil
}

// inScript is a cheap predominant-script check. For "en" (and any unknown
// code) it accepts Latin letters; extend here when rosters grow personas in
// other scripts.
func inScript(r rune, language string) bool {
	switch language {
	case "ru":
		return unicode.Is(unicode.Cyrillic, r)
	case "ja":
		return unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han)
	default:
		return unicode.Is(unicode.Latin, r)
	}
}
