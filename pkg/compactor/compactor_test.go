package compactor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/converse/pkg/classifier"
	"mercator-hq/converse/pkg/conversation"
	"mercator-hq/converse/pkg/telemetry/logging"
)

// fakeAnalyzer records the turns each call received.
type fakeAnalyzer struct {
	mu         sync.Mutex
	summary    string
	analysis   conversation.IntentAnalysis
	delay      time.Duration
	classified [][]conversation.Turn
	summarized [][]conversation.Turn
}

func (f *fakeAnalyzer) ClassifyIntent(ctx context.Context, turns []conversation.Turn) conversation.IntentAnalysis {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classified = append(f.classified, turns)
	return f.analysis
}

func (f *fakeAnalyzer) Summarize(ctx context.Context, turns []conversation.Turn) string {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarized = append(f.summarized, turns)
	return f.summary
}

func history(n int) []conversation.Turn {
	turns := make([]conversation.Turn, n)
	for i := range turns {
		role := conversation.RoleCustomer
		if i%2 == 1 {
			role = conversation.RoleAgent
		}
		turns[i] = conversation.Turn{Role: role, Text: fmt.Sprintf("mensagem %d", i+1)}
	}
	return turns
}

func newCompactor(a Analyzer) *Compactor {
	return New(a, Config{Logger: logging.Discard()})
}

func TestPrepareContext_ShortHistoryIsVerbatim(t *testing.T) {
	analyzer := &fakeAnalyzer{
		summary:  "não deveria ser usado",
		analysis: conversation.IntentAnalysis{Intent: conversation.IntentPurchase, Source: conversation.SourceAI},
	}
	c := newCompactor(analyzer)
	turns := history(5)

	cc := c.PrepareContext(context.Background(), turns)

	if cc.Compacted || cc.HasSummary() {
		t.Errorf("expected no summary, got compacted=%v summary=%q", cc.Compacted, cc.Summary)
	}
	if len(cc.RecentTurns) != 5 {
		t.Fatalf("expected 5 recent turns, got %d", len(cc.RecentTurns))
	}
	for i := range turns {
		if cc.RecentTurns[i] != turns[i] {
			t.Errorf("turn %d: expected %+v, got %+v", i, turns[i], cc.RecentTurns[i])
		}
	}
	if cc.TotalTurnCount != 5 {
		t.Errorf("expected total 5, got %d", cc.TotalTurnCount)
	}
	if cc.Analysis.Intent != conversation.IntentPurchase {
		t.Errorf("expected intent %q, got %q", conversation.IntentPurchase, cc.Analysis.Intent)
	}
	if len(analyzer.summarized) != 0 {
		t.Errorf("expected no summarize calls, got %d", len(analyzer.summarized))
	}
	if len(analyzer.classified) != 1 || len(analyzer.classified[0]) != 5 {
		t.Errorf("expected classification over all 5 turns, got %v", analyzer.classified)
	}
}

func TestPrepareContext_AtThresholdIsVerbatim(t *testing.T) {
	analyzer := &fakeAnalyzer{summary: "resumo"}
	c := newCompactor(analyzer)

	cc := c.PrepareContext(context.Background(), history(DefaultThreshold))

	if cc.Compacted {
		t.Error("expected history at the threshold to stay verbatim")
	}
	if len(cc.RecentTurns) != DefaultThreshold {
		t.Errorf("expected %d recent turns, got %d", DefaultThreshold, len(cc.RecentTurns))
	}
}

func TestPrepareContext_LongHistoryIsCompacted(t *testing.T) {
	analyzer := &fakeAnalyzer{
		summary:  "Cliente pediu orçamento de cadeiras.",
		analysis: conversation.IntentAnalysis{Intent: conversation.IntentPriceQuestion, Source: conversation.SourceAI},
	}
	c := newCompactor(analyzer)
	turns := history(12)

	cc := c.PrepareContext(context.Background(), turns)

	if !cc.HasSummary() {
		t.Fatal("expected a summary")
	}
	if len(cc.RecentTurns) != 4 {
		t.Fatalf("expected 4 recent turns, got %d", len(cc.RecentTurns))
	}
	if cc.RecentTurns[0].Text != "mensagem 9" || cc.RecentTurns[3].Text != "mensagem 12" {
		t.Errorf("expected turns 9..12, got %q..%q", cc.RecentTurns[0].Text, cc.RecentTurns[3].Text)
	}
	if cc.TotalTurnCount != 12 {
		t.Errorf("expected total 12, got %d", cc.TotalTurnCount)
	}

	if len(analyzer.summarized) != 1 || len(analyzer.summarized[0]) != 8 {
		t.Fatalf("expected one summary over 8 older turns, got %v", analyzer.summarized)
	}
	if analyzer.summarized[0][7].Text != "mensagem 8" {
		t.Errorf("expected older slice to end at turn 8, got %q", analyzer.summarized[0][7].Text)
	}
	if len(analyzer.classified) != 1 || len(analyzer.classified[0]) != 4 {
		t.Errorf("expected classification over 4 recent turns, got %v", analyzer.classified)
	}
}

func TestPrepareContext_RunsCallsConcurrently(t *testing.T) {
	analyzer := &fakeAnalyzer{summary: "resumo", delay: 100 * time.Millisecond}
	c := newCompactor(analyzer)

	start := time.Now()
	c.PrepareContext(context.Background(), history(10))
	elapsed := time.Since(start)

	if elapsed >= 190*time.Millisecond {
		t.Errorf("expected summary and classification to overlap, took %v", elapsed)
	}
}

func TestPrepareContext_FailedSummaryKeepsTail(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	c := newCompactor(analyzer)

	cc := c.PrepareContext(context.Background(), history(9))

	if !cc.Compacted {
		t.Error("expected compacted context")
	}
	if cc.HasSummary() {
		t.Errorf("expected no summary, got %q", cc.Summary)
	}
	if len(cc.RecentTurns) != 4 {
		t.Errorf("expected 4 recent turns, got %d", len(cc.RecentTurns))
	}
	if got := FormatContextForPrompt(cc); got != "" {
		t.Errorf("expected empty prompt block, got %q", got)
	}
}

func TestPrepareContext_WithHeuristicAdapter(t *testing.T) {
	adapter := classifier.New(classifier.Config{Logger: logging.Discard()})
	c := newCompactor(adapter)

	turns := history(11)
	turns[10] = conversation.Turn{Role: conversation.RoleCustomer, Text: "Quero falar com um atendente"}

	cc := c.PrepareContext(context.Background(), turns)

	if !cc.Compacted || cc.HasSummary() {
		t.Errorf("expected compacted context without summary, got %+v", cc)
	}
	if cc.Analysis.Intent != conversation.IntentTransferToHuman {
		t.Errorf("expected intent %q, got %q", conversation.IntentTransferToHuman, cc.Analysis.Intent)
	}
	if cc.Analysis.Source != conversation.SourceHeuristic {
		t.Errorf("expected heuristic source, got %q", cc.Analysis.Source)
	}
}

func TestNew_Config(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		wantThreshold int
		wantRecent    int
	}{
		{"defaults", Config{}, DefaultThreshold, DefaultRecentTurns},
		{"custom", Config{Threshold: 20, RecentTurns: 6}, 20, 6},
		{"recent capped", Config{Threshold: 3, RecentTurns: 6}, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakeAnalyzer{}, tt.cfg)
			if c.threshold != tt.wantThreshold {
				t.Errorf("expected threshold %d, got %d", tt.wantThreshold, c.threshold)
			}
			if c.recent != tt.wantRecent {
				t.Errorf("expected recent %d, got %d", tt.wantRecent, c.recent)
			}
		})
	}
}

func TestFormatContextForPrompt(t *testing.T) {
	tests := []struct {
		name     string
		cc       *conversation.Context
		contains []string
		excludes []string
		empty    bool
	}{
		{
			name:  "nil context",
			cc:    nil,
			empty: true,
		},
		{
			name:  "not compacted",
			cc:    &conversation.Context{RecentTurns: history(3), TotalTurnCount: 3},
			empty: true,
		},
		{
			name: "summary with complaint",
			cc: &conversation.Context{
				Compacted:      true,
				Summary:        "  Cliente relatou atraso na entrega.  ",
				RecentTurns:    history(4),
				TotalTurnCount: 12,
				Analysis:       conversation.IntentAnalysis{Intent: conversation.IntentComplaint},
			},
			contains: []string{
				"## Contexto da conversa",
				"Resumo das 8 mensagens anteriores: Cliente relatou atraso na entrega.\n",
				"reclamação",
			},
		},
		{
			name: "default intent omitted",
			cc: &conversation.Context{
				Compacted:      true,
				Summary:        "Cliente perguntou o horário de funcionamento.",
				RecentTurns:    history(4),
				TotalTurnCount: 9,
				Analysis:       conversation.IntentAnalysis{Intent: conversation.IntentInformation},
			},
			contains: []string{"Resumo das 5 mensagens anteriores"},
			excludes: []string{"Intenção"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatContextForPrompt(tt.cc)
			if tt.empty {
				if got != "" {
					t.Errorf("expected empty block, got %q", got)
				}
				return
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("expected block to contain %q, got %q", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("expected block not to contain %q, got %q", s, got)
				}
			}
		})
	}
}

func TestFormatContextForPrompt_EveryNonDefaultIntent(t *testing.T) {
	for _, intent := range conversation.Intents {
		if intent == conversation.IntentInformation {
			continue
		}
		cc := &conversation.Context{
			Compacted:      true,
			Summary:        "resumo",
			RecentTurns:    history(4),
			TotalTurnCount: 10,
			Analysis:       conversation.IntentAnalysis{Intent: intent},
		}
		if got := FormatContextForPrompt(cc); !strings.Contains(got, "Intenção atual do cliente") {
			t.Errorf("intent %q: expected intent line, got %q", intent, got)
		}
	}
}
