package conversation

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who sent a turn.
type Role string

const (
	// RoleCustomer is a message written by the end customer.
	RoleCustomer Role = "CUSTOMER"

	// RoleAgent is a message written by the business (human or automated).
	RoleAgent Role = "AGENT"
)

// Turn is one message in a conversation. Turns are immutable once created.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Intent is the coarse purpose of the customer's latest messages.
type Intent string

const (
	IntentTransferToHuman Intent = "transfer_to_human"
	IntentComplaint       Intent = "complaint"
	IntentPriceQuestion   Intent = "price_question"
	IntentPurchase        Intent = "purchase"
	IntentScheduling      Intent = "scheduling"
	IntentSupportRequest  Intent = "support_request"

	// IntentInformation is the default when nothing more specific matches.
	IntentInformation Intent = "information"
)

// Intents lists every valid intent in priority order (highest first).
var Intents = []Intent{
	IntentTransferToHuman,
	IntentComplaint,
	IntentPriceQuestion,
	IntentPurchase,
	IntentScheduling,
	IntentSupportRequest,
	IntentInformation,
}

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// Sentiment is the emotional polarity detected in recent turns.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Sentiments lists every valid sentiment.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// Valid reports whether s is one of the known sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// Tone is the reply style suggested to the generator.
type Tone string

const (
	ToneNeutral      Tone = "neutral"
	ToneFriendly     Tone = "friendly"
	ToneEmpathetic   Tone = "empathetic"
	ToneProfessional Tone = "professional"
)

// Tones lists every valid tone.
var Tones = []Tone{ToneNeutral, ToneFriendly, ToneEmpathetic, ToneProfessional}

// Valid reports whether t is one of the known tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneNeutral, ToneFriendly, ToneEmpathetic, ToneProfessional:
		return true
	}
	return false
}

// Source records which classification tier produced an analysis.
type Source string

const (
	// SourceAI means the values were reported by the completion model.
	SourceAI Source = "ai"

	// SourceHeuristic means the values came from local keyword matching.
	// Confidence is pinned low to mark the result as unverified.
	SourceHeuristic Source = "heuristic"
)

// IntentAnalysis is the derived classification of recent turns.
type IntentAnalysis struct {
	Intent        Intent    `json:"intent"`
	Sentiment     Sentiment `json:"sentiment"`
	Confidence    float64   `json:"confidence"`
	SuggestedTone Tone      `json:"suggested_tone"`
	Source        Source    `json:"source"`
}

// Context is the bundle handed to the reply generator for one inbound turn.
type Context struct {
	// Summary is the abstract of older turns. Only meaningful when Compacted
	// is true; it may still be empty if summarization failed.
	Summary string

	// Compacted is true when the history exceeded the compaction threshold
	// and older turns were replaced by Summary.
	Compacted bool

	// RecentTurns holds the verbatim tail of the conversation.
	RecentTurns []Turn

	// Analysis is the intent classification used for this context.
	Analysis IntentAnalysis

	// TotalTurnCount is the length of the full history, including
	// summarized turns.
	TotalTurnCount int
}

// HasSummary reports whether a non-empty summary is available.
func (c *Context) HasSummary() bool {
	return c != nil && c.Compacted && strings.TrimSpace(c.Summary) != ""
}

// FarewellType categorizes a closing message.
type FarewellType string

const (
	FarewellThanking     FarewellType = "THANKING"
	FarewellGoodbye      FarewellType = "GOODBYE"
	FarewellConfirmation FarewellType = "CONFIRMATION"
	FarewellBrief        FarewellType = "BRIEF"
)

// Transcript renders turns as "Cliente: ..." / "Atendente: ..." lines, the
// format sent to the completion model.
func Transcript(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", t.Role.Label(), strings.TrimSpace(t.Text))
	}
	return b.String()
}

// Label returns the Portuguese speaker label for the role.
func (r Role) Label() string {
	if r == RoleAgent {
		return "Atendente"
	}
	return "Cliente"
}

// LastTurns returns the final n turns (or all of them when fewer exist).
// The returned slice shares the backing array with turns.
func LastTurns(turns []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
