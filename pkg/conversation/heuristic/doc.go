// Package heuristic classifies conversation text with local phrase tables.
//
// Everything here is pure and deterministic: no I/O, no clocks, no shared
// mutable state. The phrase tables are plain data (see Tables) compiled into a
// Classifier once; the package-level functions use DefaultTables.
//
// Three checks are provided:
//
//	heuristic.IsEndOfConversation("valeu!")          // true
//	heuristic.ClassifyFarewell("Muito obrigada")     // FarewellThanking, true
//	heuristic.CoarseIntent(turns)                    // conversation.IntentPriceQuestion
//
// End-of-conversation detection scans a negation set first. Any continuation
// marker, question mark or request verb forces "not end" regardless of what
// follows.
package heuristic
