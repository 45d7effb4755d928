package reply

import "strings"

// Fallbacks is the fixed set of natural short replies used when generation
// fails or produces something unusable.
var Fallbacks = []string{
	"interesting take",
	"worth thinking about",
	"hard to disagree with this",
	"makes sense to me",
	"fair point",
	"been seeing this more and more",
	"this tracks",
	"curious where this goes",
}

func (g *Generator) randomFallback() string {
	return Fallbacks[g.rng.Intn(len(Fallbacks))]
}

// contextFallback picks a fallback that at least fits the shape of the
// source post instead of returning a non-sequitur.
func (g *Generator) contextFallback(source string) string {
	trimmed := strings.TrimSpace(source)
	switch {
	case strings.Contains(trimmed, "?"):
		return "good question"
	case len(trimmed) > 280:
		return "worth reading the whole thing"
	default:
		return g.randomFallback()
	}
}
