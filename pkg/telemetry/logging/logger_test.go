package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"mercator-hq/converse/pkg/config"
)

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "trace"}, nil); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	if _, err := New(config.LoggingConfig{Format: "xml"}, nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNew_InvalidCustomPattern(t *testing.T) {
	cfg := config.LoggingConfig{
		RedactPII:      true,
		RedactPatterns: []config.RedactPattern{{Name: "broken", Pattern: "("}},
	}
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for invalid custom pattern")
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected warn to be written, got %q", out)
	}
}

func TestNew_ContextFieldsAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "json", RedactPII: true}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithCompanyID(context.Background(), "acme")
	ctx = WithConversationID(ctx, "conv-1")
	ctx = WithRequestID(ctx, "req-1")

	logger.InfoContext(ctx, "turn received",
		"text", "meu email é ana@example.com e cpf 123.456.789-09",
		"api_key", "sk-ant-abcdefghijkl",
		"input_tokens", 150,
		"error", errors.New("call +55 11 98765-4321 failed"),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}

	if entry["company_id"] != "acme" || entry["conversation_id"] != "conv-1" || entry["request_id"] != "req-1" {
		t.Errorf("expected context fields, got %v", entry)
	}

	text, _ := entry["text"].(string)
	if strings.Contains(text, "ana@example.com") || strings.Contains(text, "123.456.789-09") {
		t.Errorf("expected PII to be redacted, got %q", text)
	}
	if entry["api_key"] != "sk-a***" {
		t.Errorf("expected masked api key, got %v", entry["api_key"])
	}
	if entry["input_tokens"] != float64(150) {
		t.Errorf("expected token count untouched, got %v", entry["input_tokens"])
	}
	if msg, _ := entry["error"].(string); strings.Contains(msg, "98765-4321") {
		t.Errorf("expected phone redacted from error, got %q", msg)
	}
}

func TestNew_NoRedactionWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("x", "email", "ana@example.com")
	if !strings.Contains(buf.String(), "ana@example.com") {
		t.Errorf("expected raw value without redaction, got %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nothing happens")
	if logger.Enabled(context.Background(), 8) {
		t.Error("expected discard logger to be disabled for errors")
	}
}
