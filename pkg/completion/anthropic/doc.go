// Package anthropic implements completion.Client on the Anthropic Messages
// API using the official SDK.
//
// Structured requests are expressed as a single tool whose input schema is
// the requested schema, with tool_choice forcing that tool. The tool_use
// input is returned as completion.Response.Structured.
//
// Example:
//
//	client := anthropic.New(anthropic.Config{APIKey: key})
//	resp, err := client.Complete(ctx, req)
package anthropic
