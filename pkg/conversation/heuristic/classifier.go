package heuristic

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"mercator-hq/converse/pkg/conversation"
)

var (
	// thankYouPattern accepts a standalone thank-you with an optional short
	// trailing clause ("obrigado pela ajuda", "thanks a lot").
	thankYouPattern = regexp.MustCompile(
		`^(muito |mt |mto )?(obrigad[oa]s?|brigad[oa]|agradeco|grat[oa]|thank you|thanks)` +
			`(,? (pela|pelo|por|a|ao|mesmo|demais|de novo|viu|tudo|so much|a lot|for)( [a-z]+){0,4})?$`)

	// farewellEmojiPattern matches messages made only of farewell emoji,
	// including skin tone modifiers and joiners.
	farewellEmojiPattern = regexp.MustCompile(
		`^[\x{1F44D}\x{1F44C}\x{1F64F}\x{1F44B}\x{1F91D}\x{2705}\x{2764}\x{1F499}` +
			`\x{1F49A}\x{1F49C}\x{1F60A}\x{1F642}\x{1F600}\x{1F601}\x{1F603}\x{1F604}` +
			`\x{1F609}\x{1F618}\x{1F970}\x{1F917}\x{1F3FB}-\x{1F3FF}\x{FE0F}\x{200D}\s]+$`)

	thankingPattern     = regexp.MustCompile(`obrigad|brigad|agradec|thank|\bobg\b|\bgrat[oa]s?\b|\bthx\b`)
	goodbyePattern      = regexp.MustCompile(`tchau|\bate (mais|logo|breve|amanha|a proxima|depois)\b|\bbye\b|\bflw\b|\bfalou\b|see you|abraco|fim de semana|\btenha um`)
	confirmationPattern = regexp.MustCompile(`\b(ok|okay|certo|perfeito|entendi|entendido|combinado|beleza|blz|fechado|otimo|ta bom|tudo certo|isso mesmo|resolvido)\b`)
)

// Classifier evaluates text against a fixed set of Tables. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	negations  []string
	endPhrases []string
	intents    []IntentKeywords
	maxLength  int
	window     int
}

// New compiles tables into a Classifier. Table entries are normalized the
// same way input text is.
func New(tables Tables) *Classifier {
	c := &Classifier{
		negations:  normalizeAll(tables.Negations),
		endPhrases: normalizeAll(tables.EndPhrases),
		intents:    make([]IntentKeywords, 0, len(tables.Intents)),
		maxLength:  tables.MaxLength,
		window:     tables.IntentWindow,
	}
	if c.maxLength <= 0 {
		c.maxLength = DefaultMaxLength
	}
	if c.window <= 0 {
		c.window = DefaultIntentWindow
	}
	for _, ik := range tables.Intents {
		c.intents = append(c.intents, IntentKeywords{
			Intent:   ik.Intent,
			Keywords: normalizeAll(ik.Keywords),
		})
	}
	return c
}

var defaultClassifier = New(DefaultTables())

// IsEndOfConversation reports whether text closes the conversation, using
// the default tables.
func IsEndOfConversation(text string) bool {
	return defaultClassifier.IsEndOfConversation(text)
}

// ClassifyFarewell returns the farewell category of text using the default
// tables. ok is false when text is not a closing message.
func ClassifyFarewell(text string) (conversation.FarewellType, bool) {
	return defaultClassifier.ClassifyFarewell(text)
}

// CoarseIntent classifies the latest customer turns using the default tables.
func CoarseIntent(turns []conversation.Turn) conversation.Intent {
	return defaultClassifier.CoarseIntent(turns)
}

// Analyze wraps CoarseIntent into an unverified IntentAnalysis using the
// default tables.
func Analyze(turns []conversation.Turn) conversation.IntentAnalysis {
	return defaultClassifier.Analyze(turns)
}

// IsEndOfConversation reports whether text closes the conversation.
func (c *Classifier) IsEndOfConversation(text string) bool {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return false
	}
	if farewellEmojiPattern.MatchString(raw) {
		return true
	}
	if strings.Contains(raw, "?") {
		return false
	}

	normalized := Normalize(raw)
	if normalized == "" || utf8.RuneCountInString(normalized) > c.maxLength {
		return false
	}

	// Negation wins over any later match.
	for _, neg := range c.negations {
		if containsWord(normalized, neg) {
			return false
		}
	}

	for _, phrase := range c.endPhrases {
		if wordCount(phrase) <= 2 {
			if matchesShortPhrase(normalized, phrase) {
				return true
			}
			continue
		}
		if strings.Contains(normalized, phrase) {
			return true
		}
	}

	return thankYouPattern.MatchString(normalized)
}

// ClassifyFarewell returns the category of a closing message, checked in the
// order THANKING, GOODBYE, CONFIRMATION, with BRIEF as the default.
func (c *Classifier) ClassifyFarewell(text string) (conversation.FarewellType, bool) {
	if !c.IsEndOfConversation(text) {
		return "", false
	}

	normalized := Normalize(text)
	switch {
	case thankingPattern.MatchString(normalized):
		return conversation.FarewellThanking, true
	case goodbyePattern.MatchString(normalized):
		return conversation.FarewellGoodbye, true
	case confirmationPattern.MatchString(normalized):
		return conversation.FarewellConfirmation, true
	default:
		return conversation.FarewellBrief, true
	}
}

// CoarseIntent scans the latest customer turns against the intent keyword
// sets in priority order and returns the first category that matches.
// IntentInformation is returned when nothing matches.
func (c *Classifier) CoarseIntent(turns []conversation.Turn) conversation.Intent {
	texts := make([]string, 0, c.window)
	for i := len(turns) - 1; i >= 0 && len(texts) < c.window; i-- {
		if turns[i].Role != conversation.RoleCustomer {
			continue
		}
		texts = append(texts, Normalize(turns[i].Text))
	}
	if len(texts) == 0 {
		return conversation.IntentInformation
	}

	for _, ik := range c.intents {
		for _, text := range texts {
			for _, kw := range ik.Keywords {
				if strings.Contains(text, kw) {
					return ik.Intent
				}
			}
		}
	}
	return conversation.IntentInformation
}

// Analyze returns the heuristic IntentAnalysis for turns: coarse intent,
// neutral sentiment and tone, and the fixed low Confidence.
func (c *Classifier) Analyze(turns []conversation.Turn) conversation.IntentAnalysis {
	return Fallback(c.CoarseIntent(turns))
}

// Fallback builds the unverified analysis for an intent.
func Fallback(intent conversation.Intent) conversation.IntentAnalysis {
	return conversation.IntentAnalysis{
		Intent:        intent,
		Sentiment:     conversation.SentimentNeutral,
		Confidence:    Confidence,
		SuggestedTone: conversation.ToneNeutral,
		Source:        conversation.SourceHeuristic,
	}
}
