package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/converse/pkg/completion"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, body chatRequest)) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:      url + "/v1",
		APIKey:       "sk-test",
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func writeChat(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o-mini",
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
	})
}

func textRequest() *completion.Request {
	return &completion.Request{
		Model:     "gpt-4o-mini",
		System:    "Resuma a conversa.",
		Messages:  []completion.Message{{Role: completion.RoleUser, Content: "Cliente: oi"}},
		MaxTokens: 100,
	}
}

func TestClient_CompleteText(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, body chatRequest) {
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("expected system message first, got %+v", body.Messages)
		}
		if body.ResponseFormat != nil {
			t.Errorf("expected no response_format for text, got %+v", body.ResponseFormat)
		}
		writeChat(w, "  Cliente cumprimentou.  ")
	})

	resp, err := newTestClient(t, srv.URL).Complete(context.Background(), textRequest())
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if resp.Text != "Cliente cumprimentou." {
		t.Errorf("expected trimmed text, got %q", resp.Text)
	}
	if resp.Usage.InputTokens != 20 || resp.Usage.OutputTokens != 10 {
		t.Errorf("expected usage 20/10, got %+v", resp.Usage)
	}
}

func TestClient_CompleteStructured(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, body chatRequest) {
		if body.ResponseFormat == nil || body.ResponseFormat.Type != "json_schema" {
			t.Errorf("expected json_schema response format, got %+v", body.ResponseFormat)
			writeChat(w, "{}")
			return
		}
		if body.ResponseFormat.JSONSchema.Name != "classify_intent" || !body.ResponseFormat.JSONSchema.Strict {
			t.Errorf("unexpected schema %+v", body.ResponseFormat.JSONSchema)
		}
		writeChat(w, `{"intent":"purchase","confidence":0.9}`)
	})

	req := textRequest()
	req.Schema = &completion.Schema{
		Name:       "classify_intent",
		Properties: map[string]any{"intent": map[string]any{"type": "string"}},
		Required:   []string{"intent"},
	}

	resp, err := newTestClient(t, srv.URL).Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}

	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if out.Intent != "purchase" || out.Confidence != 0.9 {
		t.Errorf("unexpected structured output %+v", out)
	}
}

func TestClient_MalformedStructuredOutput(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, body chatRequest) {
		writeChat(w, "sure! the intent is purchase")
	})

	req := textRequest()
	req.Schema = &completion.Schema{Name: "classify_intent"}

	_, err := newTestClient(t, srv.URL).Complete(context.Background(), req)
	if !errors.Is(err, completion.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int64
	srv, calls := newTestServer(t, func(w http.ResponseWriter, body chatRequest) {
		if attempts.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeChat(w, "ok")
	})

	resp, err := newTestClient(t, srv.URL).Complete(context.Background(), textRequest())
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("expected ok, got %q", resp.Text)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		check     func(error) bool
		wantCalls int64
	}{
		{"unauthorized", http.StatusUnauthorized, func(err error) bool {
			var e *completion.AuthError
			return errors.As(err, &e)
		}, 1},
		{"rate limited", http.StatusTooManyRequests, func(err error) bool {
			var e *completion.RateLimitError
			return errors.As(err, &e) && e.RetryAfter == 7*time.Second
		}, 1},
		{"bad request", http.StatusBadRequest, func(err error) bool {
			var e *completion.ProviderError
			return errors.As(err, &e) && e.StatusCode == http.StatusBadRequest
		}, 1},
		{"server error exhausts retries", http.StatusInternalServerError, func(err error) bool {
			return completion.IsRetryable(err)
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := newTestServer(t, func(w http.ResponseWriter, body chatRequest) {
				w.Header().Set("Retry-After", "7")
				http.Error(w, "nope", tt.status)
			})

			_, err := newTestClient(t, srv.URL).Complete(context.Background(), textRequest())
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls.Load())
			}
		})
	}
}

func TestClient_ContextDeadline(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, body chatRequest) {
		time.Sleep(200 * time.Millisecond)
		writeChat(w, "late")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, srv.URL).Complete(ctx, textRequest())
	var te *completion.TimeoutError
	if !errors.As(err, &te) {
		t.Errorf("expected TimeoutError, got %v", err)
	}
}

func TestClient_ValidatesRequest(t *testing.T) {
	c, _ := New(Config{APIKey: "k"})
	_, err := c.Complete(context.Background(), &completion.Request{Model: "m", MaxTokens: 10})

	var ve *completion.ValidationError
	if !errors.As(err, &ve) || ve.Field != "messages" {
		t.Errorf("expected messages validation error, got %v", err)
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "ftp://example.com"}); err == nil {
		t.Error("expected error for non-http base url")
	}
}
