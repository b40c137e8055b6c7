package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mercator-hq/converse/pkg/completion"
)

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config configures the client.
type Config struct {
	// BaseURL is the API root; "/chat/completions" is appended.
	BaseURL string
	APIKey  string

	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client implements completion.Client.
type Client struct {
	http     *completion.HTTPClient
	endpoint string
	apiKey   string
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("openai: base url must be http(s), got %q", cfg.BaseURL)
	}

	return &Client{
		http: completion.NewHTTPClient(completion.HTTPConfig{
			Name:         "openai",
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}),
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:   cfg.APIKey,
	}, nil
}

// Name returns "openai".
func (c *Client) Name() string {
	return "openai"
}

// Health returns the transport outcome snapshot.
func (c *Client) Health() completion.Health {
	return c.http.Health()
}

// Complete sends a chat completion request.
func (c *Client) Complete(ctx context.Context, req *completion.Request) (*completion.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp chatResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, c.endpoint, transformRequest(req), &resp, headers); err != nil {
		return nil, err
	}

	return transformResponse(req, &resp)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func transformRequest(req *completion.Request) *chatRequest {
	out := &chatRequest{
		Model:     req.Model,
		Messages:  make([]chatMessage, 0, len(req.Messages)+1),
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	if req.System != "" {
		out.Messages = append(out.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if s := req.Schema; s != nil {
		out.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:        s.Name,
				Description: s.Description,
				Schema:      s.JSONSchema(),
				Strict:      true,
			},
		}
	}
	return out
}

func transformResponse(req *completion.Request, resp *chatResponse) (*completion.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, &completion.ParseError{Provider: "openai", Cause: errors.New("response has no choices")}
	}

	choice := resp.Choices[0]
	out := &completion.Response{
		Model:      resp.Model,
		StopReason: choice.FinishReason,
		Usage: completion.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	content := strings.TrimSpace(choice.Message.Content)
	if req.Schema == nil {
		out.Text = content
		return out, nil
	}

	if !json.Valid([]byte(content)) || !strings.HasPrefix(content, "{") {
		return nil, &completion.ParseError{
			Provider:    "openai",
			RawResponse: content,
			Cause:       errors.New("structured output is not a JSON object"),
		}
	}
	out.Structured = json.RawMessage(content)
	return out, nil
}
