// Package openai implements completion.Client for OpenAI-compatible chat
// completions endpoints.
//
// Structured requests are sent with response_format type "json_schema" and
// strict mode, and the message content is returned as
// completion.Response.Structured after a JSON validity check.
//
// Example:
//
//	client, err := openai.New(openai.Config{
//	    BaseURL: "https://api.openai.com/v1",
//	    APIKey:  key,
//	})
package openai
