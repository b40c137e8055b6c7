package heuristic

import "mercator-hq/converse/pkg/conversation"

const (
	// DefaultMaxLength is the longest message (in runes, after normalization)
	// still considered a farewell candidate.
	DefaultMaxLength = 80

	// DefaultIntentWindow is how many of the latest customer turns feed
	// CoarseIntent.
	DefaultIntentWindow = 3

	// Confidence is pinned on every heuristic IntentAnalysis to mark it as
	// unverified.
	Confidence = 0.3
)

// IntentKeywords binds an intent to the keywords that select it.
type IntentKeywords struct {
	Intent   conversation.Intent
	Keywords []string
}

// Tables holds the ordered phrase lists used for classification.
// Entries are matched after the same normalization applied to input text, so
// they may be written with or without accents.
type Tables struct {
	// Negations force "not end of conversation". Matched as whole words.
	Negations []string

	// EndPhrases mark a closing message. Phrases of up to two words must
	// match the whole text or sit at its start/end next to a space; longer
	// phrases match anywhere.
	EndPhrases []string

	// Intents is scanned in order; the first category with a keyword hit wins.
	Intents []IntentKeywords

	// MaxLength rejects longer messages as farewells. Zero uses DefaultMaxLength.
	MaxLength int

	// IntentWindow is the number of latest customer turns scanned by
	// CoarseIntent. Zero uses DefaultIntentWindow.
	IntentWindow int
}

// DefaultTables returns a fresh copy of the built-in Portuguese/English tables.
func DefaultTables() Tables {
	t := Tables{
		Negations:    append([]string(nil), defaultNegations...),
		EndPhrases:   append([]string(nil), defaultEndPhrases...),
		Intents:      make([]IntentKeywords, len(defaultIntents)),
		MaxLength:    DefaultMaxLength,
		IntentWindow: DefaultIntentWindow,
	}
	for i, ik := range defaultIntents {
		t.Intents[i] = IntentKeywords{
			Intent:   ik.Intent,
			Keywords: append([]string(nil), ik.Keywords...),
		}
	}
	return t
}

var defaultNegations = []string{
	// continuation markers
	"mas", "porém", "só que", "também", "ainda", "outra coisa", "mais uma",
	"e sobre", "além disso", "antes", "espera", "aguarda",
	// request verbs
	"queria", "quero", "gostaria", "preciso", "precisava", "poderia", "pode",
	"podes", "consegue", "tem como", "me ajuda", "me fala", "me diz", "manda",
	// question words
	"qual", "quais", "quanto", "quanta", "quantos", "como", "quando", "onde",
	"por que", "porque", "dúvida", "duvida",
	// english
	"but", "however", "also", "need", "want", "could", "can you", "how",
	"what", "when", "where", "why", "which",
}

var defaultEndPhrases = []string{
	// thanks
	"muito obrigado", "muito obrigada", "obrigadão", "obrigadinho", "obrigadinha",
	"obrigado", "obrigada", "brigado", "brigada", "obg", "agradeço", "grato", "grata",
	"thanks", "thank you", "thx",
	// goodbye
	"tchau", "tchauzinho", "até mais", "até logo", "até breve", "até amanhã",
	"até a próxima", "até depois", "falou", "flw", "bye", "goodbye", "see you",
	"abraço", "abraços", "tenha um bom dia", "tenha uma boa tarde",
	"tenha uma boa noite", "bom fim de semana",
	// confirmation
	"ok", "okay", "certo", "perfeito", "entendi", "entendido", "combinado",
	"beleza", "blz", "fechado", "ótimo", "tá bom", "ta bom", "tudo certo",
	"isso mesmo", "resolvido", "era isso", "era só isso",
	// brief
	"valeu", "vlw", "tmj", "joia", "show", "top", "massa", "tranquilo",
	"de boa", "show de bola",
}

var defaultIntents = []IntentKeywords{
	{
		Intent: conversation.IntentTransferToHuman,
		Keywords: []string{
			"atendente", "humano", "pessoa real", "falar com alguém",
			"falar com uma pessoa", "gerente", "responsável", "human", "real person",
		},
	},
	{
		Intent: conversation.IntentComplaint,
		Keywords: []string{
			"reclama", "absurdo", "péssimo", "horrível", "insatisfeit", "procon",
			"descaso", "decepcion", "vergonha", "não funciona", "complaint",
			"terrible", "awful",
		},
	},
	{
		Intent: conversation.IntentPriceQuestion,
		Keywords: []string{
			"preço", "quanto custa", "quanto fica", "quanto é", "valor", "orçamento",
			"tabela", "price", "how much", "cost",
		},
	},
	{
		Intent: conversation.IntentPurchase,
		Keywords: []string{
			"comprar", "contratar", "encomendar", "fazer um pedido", "fechar negócio",
			"assinar", "quero levar", "buy", "purchase", "order",
		},
	},
	{
		Intent: conversation.IntentScheduling,
		Keywords: []string{
			"agendar", "agendamento", "marcar", "horário", "disponibilidade",
			"reservar", "reserva", "remarcar", "appointment", "schedule", "book",
		},
	},
	{
		Intent: conversation.IntentSupportRequest,
		Keywords: []string{
			"ajuda", "suporte", "erro", "não consigo", "problema", "defeito",
			"quebr", "travou", "bug", "help", "support", "broken",
		},
	},
}
