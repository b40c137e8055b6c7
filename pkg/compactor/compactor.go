// Package compactor bounds the conversation history handed to the reply
// generator. Short conversations pass through verbatim; longer ones have their
// older turns replaced by a model-written summary while the latest turns stay
// exact.
package compactor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"mercator-hq/converse/pkg/conversation"
)

// Defaults applied by New when a Config field is zero.
const (
	DefaultThreshold   = 8
	DefaultRecentTurns = 4
)

// Analyzer classifies and summarizes turns. Implementations absorb their own
// failures: ClassifyIntent always returns an analysis and Summarize returns ""
// when no summary is available.
type Analyzer interface {
	ClassifyIntent(ctx context.Context, turns []conversation.Turn) conversation.IntentAnalysis
	Summarize(ctx context.Context, turns []conversation.Turn) string
}

// Config configures a Compactor.
type Config struct {
	// Threshold is the largest history kept fully verbatim.
	Threshold int

	// RecentTurns is the verbatim tail kept once Threshold is exceeded. It is
	// capped at Threshold.
	RecentTurns int

	Logger *slog.Logger
}

// Compactor builds conversation.Context values. It is safe for concurrent use.
type Compactor struct {
	analyzer  Analyzer
	threshold int
	recent    int
	logger    *slog.Logger
}

// New creates a Compactor backed by analyzer.
func New(analyzer Analyzer, cfg Config) *Compactor {
	c := &Compactor{
		analyzer:  analyzer,
		threshold: cfg.Threshold,
		recent:    cfg.RecentTurns,
		logger:    cfg.Logger,
	}
	if c.threshold <= 0 {
		c.threshold = DefaultThreshold
	}
	if c.recent <= 0 {
		c.recent = DefaultRecentTurns
	}
	if c.recent > c.threshold {
		c.recent = c.threshold
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "compactor")
	}
	return c
}

// PrepareContext derives the context for the next reply from the full
// history. When the history is longer than the threshold, the older turns are
// summarized and the trailing RecentTurns are classified concurrently;
// otherwise every turn is kept and classified.
func (c *Compactor) PrepareContext(ctx context.Context, turns []conversation.Turn) *conversation.Context {
	total := len(turns)

	if total <= c.threshold {
		cc := &conversation.Context{
			RecentTurns:    clone(turns),
			Analysis:       c.analyzer.ClassifyIntent(ctx, turns),
			TotalTurnCount: total,
		}
		c.logger.DebugContext(ctx, "conversation context prepared",
			"total_turns", total,
			"compacted", false,
			"intent", cc.Analysis.Intent,
			"source", cc.Analysis.Source,
		)
		return cc
	}

	split := total - c.recent
	older, recent := turns[:split], turns[split:]

	cc := &conversation.Context{
		Compacted:      true,
		RecentTurns:    clone(recent),
		TotalTurnCount: total,
	}

	// Both calls absorb their own failures, so the group never returns an
	// error.
	var g errgroup.Group
	g.Go(func() error {
		cc.Summary = c.analyzer.Summarize(ctx, older)
		return nil
	})
	g.Go(func() error {
		cc.Analysis = c.analyzer.ClassifyIntent(ctx, recent)
		return nil
	})
	_ = g.Wait()

	c.logger.DebugContext(ctx, "conversation context prepared",
		"total_turns", total,
		"compacted", true,
		"summarized_turns", len(older),
		"summary_available", cc.Summary != "",
		"intent", cc.Analysis.Intent,
		"source", cc.Analysis.Source,
	)
	return cc
}

// intentDescriptions are the prompt phrases for non-default intents.
var intentDescriptions = map[conversation.Intent]string{
	conversation.IntentTransferToHuman: "quer falar com um atendente humano",
	conversation.IntentComplaint:       "está fazendo uma reclamação",
	conversation.IntentPriceQuestion:   "quer saber preços ou valores",
	conversation.IntentPurchase:        "demonstra intenção de compra",
	conversation.IntentScheduling:      "quer agendar ou remarcar um horário",
	conversation.IntentSupportRequest:  "precisa de suporte para um problema",
}

// FormatContextForPrompt renders the summary, and the detected intent when it
// is not the default, as a block for the reply prompt. It returns "" when the
// context carries no summary.
func FormatContextForPrompt(cc *conversation.Context) string {
	if !cc.HasSummary() {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Contexto da conversa\n")
	fmt.Fprintf(&b, "Resumo das %d mensagens anteriores: %s\n",
		cc.TotalTurnCount-len(cc.RecentTurns), strings.TrimSpace(cc.Summary))

	if desc, ok := intentDescriptions[cc.Analysis.Intent]; ok {
		fmt.Fprintf(&b, "Intenção atual do cliente: o cliente %s.\n", desc)
	}
	return b.String()
}

func clone(turns []conversation.Turn) []conversation.Turn {
	if len(turns) == 0 {
		return []conversation.Turn{}
	}
	return append([]conversation.Turn(nil), turns...)
}
