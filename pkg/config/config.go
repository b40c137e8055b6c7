package config

import "time"

// Config is the root configuration structure.
type Config struct {
	// Conversation contains context compaction and heuristic settings.
	Conversation ConversationConfig `yaml:"conversation"`

	// Classifier configures the completion-backed intent classifier and
	// summarizer.
	Classifier ClassifierConfig `yaml:"classifier"`

	// Quota contains quota resolution and cache settings.
	Quota QuotaConfig `yaml:"quota"`

	// Ledger selects the storage backend for monthly usage counters.
	Ledger LedgerConfig `yaml:"ledger"`

	// Accounts selects where company, subscription and plan records come from.
	Accounts AccountsConfig `yaml:"accounts"`

	// Database is the shared PostgreSQL connection used by the postgres
	// ledger and accounts backends.
	Database DatabaseConfig `yaml:"database"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets configures resolution of ${secret:name} references.
	Secrets SecretsConfig `yaml:"secrets"`
}

// ConversationConfig contains context compaction settings.
type ConversationConfig struct {
	// CompactionThreshold is the turn count above which older turns are
	// summarized.
	// Default: 8
	CompactionThreshold int `yaml:"compaction_threshold"`

	// RecentTurns is how many trailing turns stay verbatim once the
	// threshold is crossed.
	// Default: 4
	RecentTurns int `yaml:"recent_turns"`

	// ClassificationWindow is how many trailing turns are sent to the
	// completion model for intent classification.
	// Default: 5
	ClassificationWindow int `yaml:"classification_window"`

	// HeuristicMaxLength is the longest message (in runes) still considered
	// a farewell candidate.
	// Default: 80
	HeuristicMaxLength int `yaml:"heuristic_max_length"`

	// HeuristicIntentWindow is how many latest customer turns the keyword
	// intent classifier scans.
	// Default: 3
	HeuristicIntentWindow int `yaml:"heuristic_intent_window"`
}

// ClassifierConfig configures the completion collaborator.
type ClassifierConfig struct {
	// Provider selects the completion backend.
	// Options: "anthropic", "openai", "none"
	// "none" disables AI enrichment; every classification uses heuristics.
	// Default: "none"
	Provider string `yaml:"provider"`

	// Model is the model identifier sent to the provider.
	// Default: "claude-3-5-haiku-latest"
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint. Required for "openai".
	BaseURL string `yaml:"base_url"`

	// APIKey is the provider credential. May be a literal or a secret
	// reference of the form ${secret:name}.
	APIKey string `yaml:"api_key"`

	// Timeout bounds every completion call. A timeout is treated as a
	// transport failure.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxTokens caps the classification response.
	// Default: 256
	MaxTokens int `yaml:"max_tokens"`

	// SummaryMaxTokens caps the summarization response.
	// Default: 512
	SummaryMaxTokens int `yaml:"summary_max_tokens"`

	// Temperature is the sampling temperature.
	// Default: 0.2
	Temperature float64 `yaml:"temperature"`

	// MaxRetries is the number of retries on retryable HTTP errors.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// RequestsPerSecond throttles completion calls across all conversations.
	// Default: 5
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the throttle bucket size.
	// Default: 10
	Burst int `yaml:"burst"`
}

// QuotaConfig contains quota resolution settings.
type QuotaConfig struct {
	// CacheTTL bounds how long a cached usage read is trusted.
	// Default: 60s
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// DefaultTrialLimit applies to trial companies when no plan is flagged
	// as the trial tier.
	// Default: 100000
	DefaultTrialLimit int64 `yaml:"default_trial_limit"`

	// WarnThreshold is the usage fraction that adds a soft warning to quota
	// decisions.
	// Default: 0.8
	WarnThreshold float64 `yaml:"warn_threshold"`

	// RegistrationWarnThreshold is the usage fraction that adds a warning to
	// usage registration results.
	// Default: 0.9
	RegistrationWarnThreshold float64 `yaml:"registration_warn_threshold"`

	// SweepSchedule is the cron expression for purging expired cache
	// entries. "off" disables the sweeper.
	// Default: "@every 5m"
	SweepSchedule string `yaml:"sweep_schedule"`
}

// LedgerConfig selects the usage counter storage.
type LedgerConfig struct {
	// Backend is the storage type.
	// Options: "memory", "sqlite", "postgres", "dynamodb"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// DynamoDB contains DynamoDB-specific settings.
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
}

// SQLiteConfig contains SQLite ledger settings.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/usage.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`
}

// DynamoDBConfig contains DynamoDB ledger settings.
type DynamoDBConfig struct {
	// Table is the table name. Partition key "pk" (S), sort key "month" (S).
	// Default: "converse-usage"
	Table string `yaml:"table"`

	// Region overrides the AWS region from the default credential chain.
	Region string `yaml:"region"`

	// Endpoint overrides the service endpoint (e.g. DynamoDB Local).
	Endpoint string `yaml:"endpoint"`
}

// DatabaseConfig is a PostgreSQL connection.
type DatabaseConfig struct {
	// DSN is the connection string. May be a secret reference.
	DSN string `yaml:"dsn"`

	// MaxConns caps the connection pool.
	// Default: 10
	MaxConns int32 `yaml:"max_conns"`
}

// AccountsConfig selects the company directory.
type AccountsConfig struct {
	// Backend is the directory type.
	// Options: "memory", "postgres"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Companies seeds the memory directory.
	Companies []CompanyConfig `yaml:"companies"`

	// Plans seeds the memory directory.
	Plans []PlanConfig `yaml:"plans"`
}

// CompanyConfig is a static company record.
type CompanyConfig struct {
	ID                string              `yaml:"id"`
	TrialEndsAt       *time.Time          `yaml:"trial_ends_at"`
	TrialUsed         bool                `yaml:"trial_used"`
	MonthlyTokenLimit *int64              `yaml:"monthly_token_limit"`
	Subscription      *SubscriptionConfig `yaml:"subscription"`
}

// SubscriptionConfig is a static subscription record.
type SubscriptionConfig struct {
	// Status is the billing status, e.g. "ACTIVE", "CANCELED", "PAST_DUE".
	Status           string     `yaml:"status"`
	CurrentPeriodEnd *time.Time `yaml:"current_period_end"`

	// Plan references PlanConfig.Name.
	Plan string `yaml:"plan"`
}

// PlanConfig is a static plan record.
type PlanConfig struct {
	Name string `yaml:"name"`

	// MaxTokensMonth is the monthly ceiling; -1 means unlimited.
	MaxTokensMonth int64 `yaml:"max_tokens_month"`

	// IsTrial flags the plan whose limit applies to trial companies.
	IsTrial bool `yaml:"is_trial"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in logs.
	// Redacts e-mails, phone numbers, CPFs, API keys and bearer tokens.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether collectors are registered.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "converse"
	Namespace string `yaml:"namespace"`
}

// SecretsConfig configures secret resolution.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased secret name when looking it
	// up in the environment.
	// Default: "CONVERSE_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// SSM enables AWS Systems Manager Parameter Store lookups after the
	// environment.
	SSM SSMConfig `yaml:"ssm"`

	// CacheTTL is how long resolved secrets are kept.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// SSMConfig configures the Parameter Store provider.
type SSMConfig struct {
	// Enabled controls whether the provider is registered.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Region overrides the AWS region from the default credential chain.
	Region string `yaml:"region"`

	// Prefix is prepended to the secret name to form the parameter path.
	// Default: "/converse/"
	Prefix string `yaml:"prefix"`
}
