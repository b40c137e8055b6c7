package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"mercator-hq/converse/pkg/completion"
)

const providerName = "anthropic"

// Config configures the client.
type Config struct {
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	Timeout    time.Duration
	MaxRetries int
}

// Client implements completion.Client.
type Client struct {
	client sdk.Client
}

// New creates a client.
func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{client: sdk.NewClient(opts...)}
}

// Name returns "anthropic".
func (c *Client) Name() string {
	return providerName
}

// Complete sends a Messages API request.
func (c *Client) Complete(ctx context.Context, req *completion.Request) (*completion.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg, err := c.client.Messages.New(ctx, buildParams(req))
	if err != nil {
		return nil, mapError(ctx, err)
	}

	return transformResponse(req, msg)
}

func buildParams(req *completion.Request) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  make([]sdk.MessageParam, 0, len(req.Messages)),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	for _, m := range req.Messages {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == completion.RoleAssistant {
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, sdk.NewUserMessage(block))
		}
	}

	if s := req.Schema; s != nil {
		tool := sdk.ToolParam{
			Name: s.Name,
			InputSchema: sdk.ToolInputSchemaParam{
				Type:       "object",
				Properties: s.Properties,
			},
		}
		if s.Description != "" {
			tool.Description = sdk.String(s.Description)
		}
		if len(s.Required) > 0 {
			tool.InputSchema.Required = s.Required
		}
		params.Tools = []sdk.ToolUnionParam{{OfTool: &tool}}
		params.ToolChoice = sdk.ToolChoiceUnionParam{
			OfTool: &sdk.ToolChoiceToolParam{Name: s.Name},
		}
	}

	return params
}

func transformResponse(req *completion.Request, msg *sdk.Message) (*completion.Response, error) {
	out := &completion.Response{
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: completion.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case sdk.TextBlock:
			text.WriteString(b.Text)
		case sdk.ToolUseBlock:
			if req.Schema != nil && b.Name == req.Schema.Name {
				out.Structured = json.RawMessage(b.Input)
			}
		}
	}
	out.Text = strings.TrimSpace(text.String())

	if req.Schema != nil && !json.Valid(out.Structured) {
		return nil, &completion.ParseError{
			Provider:    providerName,
			RawResponse: out.Text,
			Cause:       fmt.Errorf("no %s tool call in response", req.Schema.Name),
		}
	}
	return out, nil
}

// mapError converts SDK errors to completion errors.
func mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &completion.TimeoutError{Provider: providerName, Cause: ctx.Err()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &completion.TimeoutError{Provider: providerName, Cause: err}
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return &completion.AuthError{Provider: providerName, Message: apiErr.Error()}
		case 429:
			return &completion.RateLimitError{Provider: providerName, Message: apiErr.Error()}
		default:
			return &completion.ProviderError{
				Provider:   providerName,
				StatusCode: apiErr.StatusCode,
				Message:    apiErr.Error(),
				Cause:      err,
			}
		}
	}

	return &completion.ProviderError{Provider: providerName, Message: "request failed", Cause: err}
}
