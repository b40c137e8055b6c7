package heuristic

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const trailingPunctuation = ".,;:!?…~ "

// Normalize lowercases, folds accents, collapses whitespace and strips
// trailing punctuation. Embedded punctuation is left in place.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = foldAccents(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, trailingPunctuation)
}

// foldAccents decomposes the text and drops combining marks so that
// "até" and "ate" compare equal.
func foldAccents(s string) string {
	// Transformers carry state, so a chain is built per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// containsWord reports whether phrase appears in text bounded by spaces or
// the ends of the string. text must already be normalized.
func containsWord(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// matchesShortPhrase applies the boundary rule for phrases of up to two
// words: whole text, prefix followed by a space, or suffix preceded by one.
func matchesShortPhrase(text, phrase string) bool {
	return text == phrase ||
		strings.HasPrefix(text, phrase+" ") ||
		strings.HasSuffix(text, " "+phrase)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
