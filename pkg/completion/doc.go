// Package completion defines the narrow request/response contract used to
// call an external text-completion service.
//
// A Request carries a system instruction, ordered chat messages and,
// optionally, a Schema. With a Schema the provider is asked for a single
// JSON object matching it and Response.Structured holds that object; without
// one Response.Text holds free text.
//
// Providers live in subpackages:
//
//   - completion/anthropic uses the Anthropic Messages API through the
//     official SDK; structured output is a forced tool call
//   - completion/openai talks to any OpenAI-compatible chat completions
//     endpoint over HTTP; structured output uses response_format json_schema
//
// HTTPClient is the shared JSON-over-HTTP transport with retry and backoff
// used by HTTP-based providers.
package completion
