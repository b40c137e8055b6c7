package classifier

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/converse/pkg/completion"
	"mercator-hq/converse/pkg/conversation"
)

const classificationSystemPrompt = `Você analisa conversas de atendimento ao cliente via chat.
Com base nas mensagens mais recentes, classifique:
- intent: a intenção atual do cliente
- sentiment: o sentimento do cliente
- confidence: sua confiança na classificação, de 0 a 1
- suggested_tone: o tom recomendado para a próxima resposta do atendente
Use somente os valores permitidos pelo esquema.`

const summarySystemPrompt = `Resuma a conversa de atendimento a seguir em português, em no máximo cinco frases.
Preserve nomes, produtos, valores, datas, pedidos e pendências do cliente.
Responda apenas com o resumo, em texto corrido.`

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// classificationSchema is the structured output requested from the model.
var classificationSchema = &completion.Schema{
	Name:        "classify_intent",
	Description: "Registra a classificação da conversa.",
	Properties: map[string]any{
		"intent": map[string]any{
			"type": "string",
			"enum": enumStrings(conversation.Intents),
		},
		"sentiment": map[string]any{
			"type": "string",
			"enum": enumStrings(conversation.Sentiments),
		},
		"confidence": map[string]any{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
		"suggested_tone": map[string]any{
			"type": "string",
			"enum": enumStrings(conversation.Tones),
		},
	},
	Required: []string{"intent", "sentiment", "confidence", "suggested_tone"},
}

// classificationPayload is the model's structured answer.
type classificationPayload struct {
	Intent        string   `json:"intent"`
	Sentiment     string   `json:"sentiment"`
	Confidence    *float64 `json:"confidence"`
	SuggestedTone string   `json:"suggested_tone"`
}

var errInvalidClassification = errors.New("invalid classification")

// analysis validates the payload and converts it.
func (p *classificationPayload) analysis() (conversation.IntentAnalysis, error) {
	a := conversation.IntentAnalysis{
		Intent:        conversation.Intent(strings.ToLower(strings.TrimSpace(p.Intent))),
		Sentiment:     conversation.Sentiment(strings.ToLower(strings.TrimSpace(p.Sentiment))),
		SuggestedTone: conversation.Tone(strings.ToLower(strings.TrimSpace(p.SuggestedTone))),
		Source:        conversation.SourceAI,
	}

	switch {
	case !a.Intent.Valid():
		return a, fmt.Errorf("%w: intent %q", errInvalidClassification, p.Intent)
	case !a.Sentiment.Valid():
		return a, fmt.Errorf("%w: sentiment %q", errInvalidClassification, p.Sentiment)
	case !a.SuggestedTone.Valid():
		return a, fmt.Errorf("%w: tone %q", errInvalidClassification, p.SuggestedTone)
	case p.Confidence == nil:
		return a, fmt.Errorf("%w: missing confidence", errInvalidClassification)
	case *p.Confidence < 0 || *p.Confidence > 1:
		return a, fmt.Errorf("%w: confidence %v out of range", errInvalidClassification, *p.Confidence)
	}
	a.Confidence = *p.Confidence
	return a, nil
}
