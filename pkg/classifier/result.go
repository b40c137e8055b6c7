package classifier

import (
	"time"

	"mercator-hq/converse/pkg/completion"
	"mercator-hq/converse/pkg/conversation"
	"mercator-hq/converse/pkg/conversation/heuristic"
)

// Result is the outcome of Classify: an AIResult or a HeuristicResult.
type Result interface {
	isResult()
}

// AIResult is a classification reported by the completion model.
type AIResult struct {
	Analysis conversation.IntentAnalysis
	Usage    completion.Usage
	Latency  time.Duration
}

// HeuristicResult is a classification produced by keyword matching.
type HeuristicResult struct {
	Intent conversation.Intent

	// Cause is why the model was not used; nil when no model is configured.
	Cause error
}

func (AIResult) isResult()        {}
func (HeuristicResult) isResult() {}

// Collapse folds a Result into an IntentAnalysis. A nil Result collapses to
// the default heuristic analysis.
func Collapse(r Result) conversation.IntentAnalysis {
	switch v := r.(type) {
	case AIResult:
		a := v.Analysis
		a.Source = conversation.SourceAI
		return a
	case HeuristicResult:
		return heuristic.Fallback(v.Intent)
	default:
		return heuristic.Fallback(conversation.IntentInformation)
	}
}
