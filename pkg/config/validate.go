package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "quota.cache_ttl").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateConversation(&cfg.Conversation)...)
	errs = append(errs, validateClassifier(&cfg.Classifier)...)
	errs = append(errs, validateQuota(&cfg.Quota)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateAccounts(&cfg.Accounts)...)
	errs = append(errs, validateDatabase(cfg)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateConversation(cfg *ConversationConfig) []FieldError {
	var errs []FieldError

	if cfg.RecentTurns <= 0 {
		errs = append(errs, FieldError{
			Field:   "conversation.recent_turns",
			Message: "must be positive",
		})
	}
	if cfg.CompactionThreshold < cfg.RecentTurns {
		errs = append(errs, FieldError{
			Field:   "conversation.compaction_threshold",
			Message: fmt.Sprintf("must be at least recent_turns (%d)", cfg.RecentTurns),
		})
	}
	if cfg.ClassificationWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "conversation.classification_window",
			Message: "must be positive",
		})
	}
	if cfg.HeuristicMaxLength <= 0 {
		errs = append(errs, FieldError{
			Field:   "conversation.heuristic_max_length",
			Message: "must be positive",
		})
	}
	if cfg.HeuristicIntentWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "conversation.heuristic_intent_window",
			Message: "must be positive",
		})
	}

	return errs
}

func validateClassifier(cfg *ClassifierConfig) []FieldError {
	var errs []FieldError

	switch cfg.Provider {
	case "none":
		return nil
	case "anthropic", "openai":
	default:
		return []FieldError{{
			Field:   "classifier.provider",
			Message: fmt.Sprintf("invalid provider %q: must be 'anthropic', 'openai', or 'none'", cfg.Provider),
		}}
	}

	if cfg.APIKey == "" {
		errs = append(errs, FieldError{
			Field:   "classifier.api_key",
			Message: "api key is required when a provider is configured",
		})
	}
	if cfg.Model == "" {
		errs = append(errs, FieldError{
			Field:   "classifier.model",
			Message: "model is required",
		})
	}
	if cfg.Provider == "openai" && cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "classifier.base_url",
			Message: "base url is required for the openai provider",
		})
	}
	if cfg.BaseURL != "" {
		if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "classifier.base_url",
				Message: fmt.Sprintf("invalid url %q", cfg.BaseURL),
			})
		}
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "classifier.timeout",
			Message: "must be positive",
		})
	}
	if cfg.MaxTokens <= 0 || cfg.SummaryMaxTokens <= 0 {
		errs = append(errs, FieldError{
			Field:   "classifier.max_tokens",
			Message: "max_tokens and summary_max_tokens must be positive",
		})
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		errs = append(errs, FieldError{
			Field:   "classifier.temperature",
			Message: "must be between 0 and 2",
		})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "classifier.max_retries",
			Message: "must not be negative",
		})
	}
	if cfg.RequestsPerSecond <= 0 {
		errs = append(errs, FieldError{
			Field:   "classifier.requests_per_second",
			Message: "must be positive",
		})
	}
	if cfg.Burst < 1 {
		errs = append(errs, FieldError{
			Field:   "classifier.burst",
			Message: "must be at least 1",
		})
	}

	return errs
}

func validateQuota(cfg *QuotaConfig) []FieldError {
	var errs []FieldError

	if cfg.CacheTTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "quota.cache_ttl",
			Message: "must be positive",
		})
	}
	if cfg.DefaultTrialLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "quota.default_trial_limit",
			Message: "must be positive",
		})
	}
	if cfg.WarnThreshold <= 0 || cfg.WarnThreshold > 1 {
		errs = append(errs, FieldError{
			Field:   "quota.warn_threshold",
			Message: "must be in (0, 1]",
		})
	}
	if cfg.RegistrationWarnThreshold <= 0 || cfg.RegistrationWarnThreshold > 1 {
		errs = append(errs, FieldError{
			Field:   "quota.registration_warn_threshold",
			Message: "must be in (0, 1]",
		})
	}
	if cfg.SweepSchedule != SweepDisabled {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "quota.sweep_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.SweepSchedule, err),
			})
		}
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "postgres":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "ledger.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "ledger.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
	case "dynamodb":
		if cfg.DynamoDB.Table == "" {
			errs = append(errs, FieldError{
				Field:   "ledger.dynamodb.table",
				Message: "table is required for the dynamodb backend",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "ledger.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', 'postgres', or 'dynamodb'", cfg.Backend),
		})
	}

	return errs
}

func validateAccounts(cfg *AccountsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "postgres":
	default:
		errs = append(errs, FieldError{
			Field:   "accounts.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'postgres'", cfg.Backend),
		})
	}

	plans := make(map[string]bool, len(cfg.Plans))
	for i, p := range cfg.Plans {
		field := fmt.Sprintf("accounts.plans[%d]", i)
		if p.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "name is required"})
		}
		if p.MaxTokensMonth < -1 {
			errs = append(errs, FieldError{
				Field:   field + ".max_tokens_month",
				Message: "must be -1 (unlimited) or non-negative",
			})
		}
		plans[p.Name] = true
	}

	seen := make(map[string]bool, len(cfg.Companies))
	for i, c := range cfg.Companies {
		field := fmt.Sprintf("accounts.companies[%d]", i)
		if c.ID == "" {
			errs = append(errs, FieldError{Field: field + ".id", Message: "id is required"})
		} else if seen[c.ID] {
			errs = append(errs, FieldError{Field: field + ".id", Message: fmt.Sprintf("duplicate company %q", c.ID)})
		}
		seen[c.ID] = true
		if c.Subscription != nil && c.Subscription.Plan != "" && !plans[c.Subscription.Plan] {
			errs = append(errs, FieldError{
				Field:   field + ".subscription.plan",
				Message: fmt.Sprintf("unknown plan %q", c.Subscription.Plan),
			})
		}
	}

	return errs
}

func validateDatabase(cfg *Config) []FieldError {
	needed := cfg.Ledger.Backend == "postgres" || cfg.Accounts.Backend == "postgres"
	if needed && cfg.Database.DSN == "" {
		return []FieldError{{
			Field:   "database.dsn",
			Message: "dsn is required when a postgres backend is selected",
		}}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	return errs
}
