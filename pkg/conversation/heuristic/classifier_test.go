package heuristic

import (
	"strings"
	"testing"
	"time"

	"mercator-hq/converse/pkg/conversation"
)

func TestIsEndOfConversation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"brief thanks with bang", "valeu!", true},
		{"thanks with negation", "valeu, mas queria saber o preço", false},
		{"thanking long form", "Muito obrigada pela ajuda", true},
		{"goodbye", "Tchau, até mais", true},
		{"confirmation", "Ok", true},
		{"uppercase and spaces", "   PERFEITO!!!  ", true},
		{"accents dropped by customer", "ate logo", true},
		{"question mark", "ok?", false},
		{"question mid text", "obrigado, e o horário? ", false},
		{"request verb", "obrigado, preciso de outra coisa", false},
		{"english", "Thanks a lot", true},
		{"thank-you clause", "obrigado pela paciência", true},
		{"emoji only", "👍", true},
		{"emoji with skin tone", "👍🏽🙏", true},
		{"emoji mixed with text", "👍 quero mais", false},
		{"unknown emoji", "🍕", false},
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"ordinary question", "qual o horário de funcionamento", false},
		{"substring false positive", "okinawa", false},
		{"short phrase as suffix", "entendi tudo, certo", true},
		{"long phrase contained", "bom, tenha um bom dia você também", false},
		{"long phrase contained no negation", "ótimo, tenha um bom dia", true},
		{"too long", "obrigado " + strings.Repeat("x", DefaultMaxLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEndOfConversation(tt.text); got != tt.want {
				t.Errorf("IsEndOfConversation(%q): expected %v, got %v", tt.text, tt.want, got)
			}
		})
	}
}

// Every end phrase must be recognized on its own, with trailing punctuation
// and capitalization.
func TestIsEndOfConversation_EveryEndPhrase(t *testing.T) {
	for _, phrase := range DefaultTables().EndPhrases {
		for _, variant := range []string{phrase, strings.ToUpper(phrase) + "!", phrase + "..."} {
			if !IsEndOfConversation(variant) {
				t.Errorf("expected %q to end the conversation", variant)
			}
		}
	}
}

// Every negation entry must override an end phrase.
func TestIsEndOfConversation_EveryNegation(t *testing.T) {
	for _, neg := range DefaultTables().Negations {
		text := "obrigado " + neg + " isso"
		if IsEndOfConversation(text) {
			t.Errorf("expected negation %q to block %q", neg, text)
		}
	}
}

func TestClassifyFarewell(t *testing.T) {
	tests := []struct {
		text   string
		want   conversation.FarewellType
		wantOK bool
	}{
		{"valeu!", conversation.FarewellBrief, true},
		{"Muito obrigada pela ajuda", conversation.FarewellThanking, true},
		{"obrigado, tchau", conversation.FarewellThanking, true},
		{"tchau", conversation.FarewellGoodbye, true},
		{"até a próxima", conversation.FarewellGoodbye, true},
		{"tenha uma boa tarde", conversation.FarewellGoodbye, true},
		{"beleza", conversation.FarewellConfirmation, true},
		{"tá bom", conversation.FarewellConfirmation, true},
		{"combinado, até logo", conversation.FarewellGoodbye, true},
		{"vlw", conversation.FarewellBrief, true},
		{"show de bola", conversation.FarewellBrief, true},
		{"🙏", conversation.FarewellBrief, true},
		{"obg", conversation.FarewellThanking, true},
		{"thx", conversation.FarewellThanking, true},
		{"valeu, mas queria saber o preço", "", false},
		{"quanto custa?", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ClassifyFarewell(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ClassifyFarewell(%q): expected ok=%v, got %v", tt.text, tt.wantOK, ok)
			}
			if got != tt.want {
				t.Errorf("ClassifyFarewell(%q): expected %q, got %q", tt.text, tt.want, got)
			}
		})
	}
}

func TestClassifyFarewell_EveryEndPhraseHasCategory(t *testing.T) {
	for _, phrase := range DefaultTables().EndPhrases {
		got, ok := ClassifyFarewell(phrase)
		if !ok {
			t.Errorf("expected %q to be classified", phrase)
			continue
		}
		switch got {
		case conversation.FarewellThanking, conversation.FarewellGoodbye,
			conversation.FarewellConfirmation, conversation.FarewellBrief:
		default:
			t.Errorf("unexpected category %q for %q", got, phrase)
		}
	}
}

func customer(text string) conversation.Turn {
	return conversation.Turn{Role: conversation.RoleCustomer, Text: text, Timestamp: time.Unix(0, 0)}
}

func agent(text string) conversation.Turn {
	return conversation.Turn{Role: conversation.RoleAgent, Text: text, Timestamp: time.Unix(0, 0)}
}

func TestCoarseIntent(t *testing.T) {
	tests := []struct {
		name  string
		turns []conversation.Turn
		want  conversation.Intent
	}{
		{"empty", nil, conversation.IntentInformation},
		{"no customer turns", []conversation.Turn{agent("Olá, posso ajudar?")}, conversation.IntentInformation},
		{"price", []conversation.Turn{customer("Quanto custa o corte?")}, conversation.IntentPriceQuestion},
		{"scheduling", []conversation.Turn{customer("Quero agendar para sexta")}, conversation.IntentScheduling},
		{"purchase", []conversation.Turn{customer("Quero comprar dois")}, conversation.IntentPurchase},
		{"support", []conversation.Turn{customer("O app deu erro")}, conversation.IntentSupportRequest},
		{"complaint", []conversation.Turn{customer("Que absurdo esse atraso")}, conversation.IntentComplaint},
		{"transfer", []conversation.Turn{customer("Quero falar com um atendente")}, conversation.IntentTransferToHuman},
		{"generic", []conversation.Turn{customer("Bom dia")}, conversation.IntentInformation},
		{
			name:  "priority transfer over complaint and price",
			turns: []conversation.Turn{customer("Esse preço é um absurdo, chama o gerente")},
			want:  conversation.IntentTransferToHuman,
		},
		{
			name:  "priority complaint over support",
			turns: []conversation.Turn{customer("péssimo, o produto tem defeito")},
			want:  conversation.IntentComplaint,
		},
		{
			name: "agent turns ignored",
			turns: []conversation.Turn{
				customer("oi"),
				agent("Nosso preço é ótimo"),
			},
			want: conversation.IntentInformation,
		},
		{
			name: "only latest three customer turns",
			turns: []conversation.Turn{
				customer("que absurdo"),
				customer("oi"),
				customer("tudo bem"),
				customer("quanto custa?"),
			},
			want: conversation.IntentPriceQuestion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoarseIntent(tt.turns); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAnalyze_PinsConfidence(t *testing.T) {
	got := Analyze([]conversation.Turn{customer("quero marcar um horário")})

	if got.Intent != conversation.IntentScheduling {
		t.Errorf("expected intent scheduling, got %q", got.Intent)
	}
	if got.Confidence != Confidence {
		t.Errorf("expected confidence %v, got %v", Confidence, got.Confidence)
	}
	if got.Sentiment != conversation.SentimentNeutral {
		t.Errorf("expected neutral sentiment, got %q", got.Sentiment)
	}
	if got.SuggestedTone != conversation.ToneNeutral {
		t.Errorf("expected neutral tone, got %q", got.SuggestedTone)
	}
	if got.Source != conversation.SourceHeuristic {
		t.Errorf("expected heuristic source, got %q", got.Source)
	}
}

func TestNew_CustomTables(t *testing.T) {
	c := New(Tables{
		Negations:  []string{"porém"},
		EndPhrases: []string{"fui"},
		Intents: []IntentKeywords{
			{Intent: conversation.IntentPurchase, Keywords: []string{"levo"}},
		},
		MaxLength: 10,
	})

	if !c.IsEndOfConversation("Fui!") {
		t.Error("expected custom end phrase to match")
	}
	if c.IsEndOfConversation("fui, porem") {
		t.Error("expected accent-folded negation to match")
	}
	if c.IsEndOfConversation("tchau") {
		t.Error("expected default phrases to be absent from custom tables")
	}
	if c.IsEndOfConversation("fui embora agora") {
		t.Error("expected custom max length to reject long text")
	}
	if got := c.CoarseIntent([]conversation.Turn{customer("eu levo")}); got != conversation.IntentPurchase {
		t.Errorf("expected purchase, got %q", got)
	}
}

func TestDefaultTables_ReturnsCopy(t *testing.T) {
	a := DefaultTables()
	a.EndPhrases[0] = "mutated"
	a.Intents[0].Keywords[0] = "mutated"

	b := DefaultTables()
	if b.EndPhrases[0] == "mutated" || b.Intents[0].Keywords[0] == "mutated" {
		t.Error("expected DefaultTables to return an independent copy")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Olá!! ", "ola"},
		{"AÇÃO...", "acao"},
		{"até   mais", "ate mais"},
		{"ok, tchau!?", "ok, tchau"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
