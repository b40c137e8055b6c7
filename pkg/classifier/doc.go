// Package classifier enriches conversation analysis with an external
// completion model and degrades to local heuristics when the model is
// unavailable.
//
// # Result Variants
//
// Classify returns a Result that is either an AIResult (the model answered
// with a valid structured classification) or a HeuristicResult (the call was
// skipped, throttled, timed out, failed or returned malformed output).
// Collapse folds either variant into a conversation.IntentAnalysis; a
// HeuristicResult always carries neutral sentiment and tone and the fixed
// heuristic confidence.
//
// # Failure Policy
//
// Nothing in this package returns an error to the caller. Classification
// falls back to heuristic.CoarseIntent and summarization falls back to an
// empty string. Every completion call is bounded by the configured timeout
// and by a shared rate limiter; waiting on either counts as a failure.
//
// Example:
//
//	adapter := classifier.New(classifier.Config{
//	    Client: client,
//	    Model:  "claude-3-5-haiku-latest",
//	})
//	analysis := adapter.ClassifyIntent(ctx, turns)
//	summary := adapter.Summarize(ctx, olderTurns)
package classifier
