package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CONVERSE_SECTION_FIELD and always take precedence over the file.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Unparseable numeric values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Conversation overrides
	envInt("CONVERSE_CONVERSATION_COMPACTION_THRESHOLD", &cfg.Conversation.CompactionThreshold)
	envInt("CONVERSE_CONVERSATION_RECENT_TURNS", &cfg.Conversation.RecentTurns)
	envInt("CONVERSE_CONVERSATION_CLASSIFICATION_WINDOW", &cfg.Conversation.ClassificationWindow)

	// Classifier overrides
	envString("CONVERSE_CLASSIFIER_PROVIDER", &cfg.Classifier.Provider)
	envString("CONVERSE_CLASSIFIER_MODEL", &cfg.Classifier.Model)
	envString("CONVERSE_CLASSIFIER_BASE_URL", &cfg.Classifier.BaseURL)
	envString("CONVERSE_CLASSIFIER_API_KEY", &cfg.Classifier.APIKey)
	envDuration("CONVERSE_CLASSIFIER_TIMEOUT", &cfg.Classifier.Timeout)
	envInt("CONVERSE_CLASSIFIER_MAX_RETRIES", &cfg.Classifier.MaxRetries)
	envFloat("CONVERSE_CLASSIFIER_REQUESTS_PER_SECOND", &cfg.Classifier.RequestsPerSecond)
	envInt("CONVERSE_CLASSIFIER_BURST", &cfg.Classifier.Burst)

	// Quota overrides
	envDuration("CONVERSE_QUOTA_CACHE_TTL", &cfg.Quota.CacheTTL)
	if val := os.Getenv("CONVERSE_QUOTA_DEFAULT_TRIAL_LIMIT"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Quota.DefaultTrialLimit = i
		}
	}
	envFloat("CONVERSE_QUOTA_WARN_THRESHOLD", &cfg.Quota.WarnThreshold)
	envFloat("CONVERSE_QUOTA_REGISTRATION_WARN_THRESHOLD", &cfg.Quota.RegistrationWarnThreshold)
	envString("CONVERSE_QUOTA_SWEEP_SCHEDULE", &cfg.Quota.SweepSchedule)

	// Ledger overrides
	envString("CONVERSE_LEDGER_BACKEND", &cfg.Ledger.Backend)
	envString("CONVERSE_LEDGER_SQLITE_PATH", &cfg.Ledger.SQLite.Path)
	envString("CONVERSE_LEDGER_SQLITE_DRIVER", &cfg.Ledger.SQLite.Driver)
	envString("CONVERSE_LEDGER_DYNAMODB_TABLE", &cfg.Ledger.DynamoDB.Table)
	envString("CONVERSE_LEDGER_DYNAMODB_REGION", &cfg.Ledger.DynamoDB.Region)
	envString("CONVERSE_LEDGER_DYNAMODB_ENDPOINT", &cfg.Ledger.DynamoDB.Endpoint)

	// Accounts and database overrides
	envString("CONVERSE_ACCOUNTS_BACKEND", &cfg.Accounts.Backend)
	envString("CONVERSE_DATABASE_DSN", &cfg.Database.DSN)

	// Telemetry overrides
	envString("CONVERSE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("CONVERSE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("CONVERSE_TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("CONVERSE_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)

	// Secrets overrides
	envString("CONVERSE_SECRETS_ENV_PREFIX", &cfg.Secrets.EnvPrefix)
	envBool("CONVERSE_SECRETS_SSM_ENABLED", &cfg.Secrets.SSM.Enabled)
	envString("CONVERSE_SECRETS_SSM_REGION", &cfg.Secrets.SSM.Region)
	envString("CONVERSE_SECRETS_SSM_PREFIX", &cfg.Secrets.SSM.Prefix)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
