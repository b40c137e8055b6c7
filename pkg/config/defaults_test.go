package config

import (
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Conversation.CompactionThreshold != 8 {
		t.Errorf("expected compaction threshold 8, got %d", cfg.Conversation.CompactionThreshold)
	}
	if cfg.Conversation.RecentTurns != 4 {
		t.Errorf("expected recent turns 4, got %d", cfg.Conversation.RecentTurns)
	}
	if cfg.Conversation.ClassificationWindow != 5 {
		t.Errorf("expected classification window 5, got %d", cfg.Conversation.ClassificationWindow)
	}
	if cfg.Quota.CacheTTL != time.Minute {
		t.Errorf("expected cache ttl 1m, got %v", cfg.Quota.CacheTTL)
	}
	if cfg.Quota.WarnThreshold != 0.8 {
		t.Errorf("expected warn threshold 0.8, got %v", cfg.Quota.WarnThreshold)
	}
	if cfg.Quota.RegistrationWarnThreshold != 0.9 {
		t.Errorf("expected registration warn threshold 0.9, got %v", cfg.Quota.RegistrationWarnThreshold)
	}
	if cfg.Classifier.Provider != "none" {
		t.Errorf("expected provider none, got %q", cfg.Classifier.Provider)
	}
	if cfg.Ledger.Backend != "memory" {
		t.Errorf("expected memory ledger, got %q", cfg.Ledger.Backend)
	}
	if !cfg.Ledger.SQLite.WALMode {
		t.Error("expected WAL mode enabled by default")
	}
	if !cfg.Telemetry.Logging.RedactPII {
		t.Error("expected PII redaction enabled by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Conversation.CompactionThreshold = 12
	cfg.Quota.CacheTTL = 5 * time.Second
	cfg.Ledger.Backend = "sqlite"

	ApplyDefaults(cfg)

	if cfg.Conversation.CompactionThreshold != 12 {
		t.Errorf("expected 12, got %d", cfg.Conversation.CompactionThreshold)
	}
	if cfg.Quota.CacheTTL != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.Quota.CacheTTL)
	}
	if cfg.Ledger.Backend != "sqlite" {
		t.Errorf("expected sqlite, got %q", cfg.Ledger.Backend)
	}
	if cfg.Conversation.RecentTurns != DefaultRecentTurns {
		t.Errorf("expected default recent turns, got %d", cfg.Conversation.RecentTurns)
	}
}
