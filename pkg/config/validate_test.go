package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:      "threshold below recent turns",
			mutate:    func(c *Config) { c.Conversation.CompactionThreshold = 2 },
			wantField: "conversation.compaction_threshold",
		},
		{
			name:      "unknown provider",
			mutate:    func(c *Config) { c.Classifier.Provider = "cohere" },
			wantField: "classifier.provider",
		},
		{
			name:      "provider without key",
			mutate:    func(c *Config) { c.Classifier.Provider = "anthropic" },
			wantField: "classifier.api_key",
		},
		{
			name: "openai without base url",
			mutate: func(c *Config) {
				c.Classifier.Provider = "openai"
				c.Classifier.APIKey = "k"
			},
			wantField: "classifier.base_url",
		},
		{
			name: "anthropic configured",
			mutate: func(c *Config) {
				c.Classifier.Provider = "anthropic"
				c.Classifier.APIKey = "${secret:anthropic_api_key}"
			},
		},
		{
			name:      "warn threshold above one",
			mutate:    func(c *Config) { c.Quota.WarnThreshold = 1.5 },
			wantField: "quota.warn_threshold",
		},
		{
			name:      "bad sweep schedule",
			mutate:    func(c *Config) { c.Quota.SweepSchedule = "every now and then" },
			wantField: "quota.sweep_schedule",
		},
		{
			name:   "sweep disabled",
			mutate: func(c *Config) { c.Quota.SweepSchedule = SweepDisabled },
		},
		{
			name:      "unknown ledger backend",
			mutate:    func(c *Config) { c.Ledger.Backend = "redis" },
			wantField: "ledger.backend",
		},
		{
			name: "bad sqlite driver",
			mutate: func(c *Config) {
				c.Ledger.Backend = "sqlite"
				c.Ledger.SQLite.Driver = "pgx"
			},
			wantField: "ledger.sqlite.driver",
		},
		{
			name:      "postgres without dsn",
			mutate:    func(c *Config) { c.Ledger.Backend = "postgres" },
			wantField: "database.dsn",
		},
		{
			name: "company references unknown plan",
			mutate: func(c *Config) {
				c.Accounts.Companies = []CompanyConfig{{
					ID:           "acme",
					Subscription: &SubscriptionConfig{Status: "ACTIVE", Plan: "gold"},
				}}
			},
			wantField: "accounts.companies[0].subscription.plan",
		},
		{
			name: "duplicate company",
			mutate: func(c *Config) {
				c.Accounts.Companies = []CompanyConfig{{ID: "acme"}, {ID: "acme"}}
			},
			wantField: "accounts.companies[1].id",
		},
		{
			name: "plan below unlimited sentinel",
			mutate: func(c *Config) {
				c.Accounts.Plans = []PlanConfig{{Name: "x", MaxTokensMonth: -2}}
			},
			wantField: "accounts.plans[0].max_tokens_month",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			wantField: "telemetry.logging.level",
		},
		{
			name: "bad redact pattern",
			mutate: func(c *Config) {
				c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "x", Pattern: "("}}
			},
			wantField: "telemetry.logging.redact_patterns[0].pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %q, got %v", tt.wantField, err)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	one := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := one.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("unexpected message %q", got)
	}

	two := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if got := two.Error(); !strings.Contains(got, "2 errors") || !strings.Contains(got, "b: worse") {
		t.Errorf("unexpected message %q", got)
	}
}
