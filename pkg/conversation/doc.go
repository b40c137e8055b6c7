// Package conversation defines the shared data model for conversation context
// compaction and intent analysis.
//
// # Overview
//
// A conversation is an append-only sequence of Turn values, each tagged with
// the sender Role. From that history the subsystem derives two ephemeral
// values per inbound message:
//
//   - Context: the bundle handed to the reply generator (optional summary of
//     older turns, verbatim recent turns, detected intent)
//   - IntentAnalysis: intent, sentiment, confidence and suggested tone
//
// Neither value is persisted. They are constructed per request and discarded.
//
// # Sub-packages
//
//   - heuristic: pure phrase-table classification (end of conversation,
//     farewell category, coarse intent)
package conversation
