package completion

import (
	"context"
	"encoding/json"
	"errors"
)

// Client sends a completion request to an external provider.
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    Role
	Content string
}

// Schema describes the JSON object a structured request must return.
type Schema struct {
	// Name is a short identifier, e.g. "classify_intent".
	Name        string
	Description string

	// Properties is a JSON Schema "properties" map.
	Properties map[string]any
	Required   []string
}

// JSONSchema renders the schema as a JSON Schema object.
func (s *Schema) JSONSchema() map[string]any {
	out := map[string]any{
		"type":                 "object",
		"properties":           s.Properties,
		"additionalProperties": false,
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model    string
	System   string
	Messages []Message

	MaxTokens   int
	Temperature float64

	// Schema requests structured output when set.
	Schema *Schema
}

// Validate checks the request before it is sent.
func (r *Request) Validate() error {
	if r == nil {
		return &ValidationError{Field: "request", Message: "must not be nil"}
	}
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "is required"}
	}
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	if r.MaxTokens <= 0 {
		return &ValidationError{Field: "max_tokens", Message: "must be positive"}
	}
	if r.Schema != nil && r.Schema.Name == "" {
		return &ValidationError{Field: "schema.name", Message: "is required"}
	}
	return nil
}

// Usage is the token consumption reported by the provider.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is a provider-agnostic completion response.
type Response struct {
	// Text is the free-text answer.
	Text string

	// Structured is the JSON object returned for a Schema request.
	Structured json.RawMessage

	Model      string
	StopReason string
	Usage      Usage
}

// Decode unmarshals Structured into v. It returns ErrMalformedResponse when
// the response carries no structured payload or it does not decode.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Structured) == 0 {
		return ErrMalformedResponse
	}
	if err := json.Unmarshal(r.Structured, v); err != nil {
		return errors.Join(ErrMalformedResponse, err)
	}
	return nil
}
