package config

import "time"

// Default values for configuration fields.
const (
	// Conversation defaults
	DefaultCompactionThreshold   = 8
	DefaultRecentTurns           = 4
	DefaultClassificationWindow  = 5
	DefaultHeuristicMaxLength    = 80
	DefaultHeuristicIntentWindow = 3

	// Classifier defaults
	DefaultClassifierProvider         = "none"
	DefaultClassifierModel            = "claude-3-5-haiku-latest"
	DefaultClassifierTimeout          = 10 * time.Second
	DefaultClassifierMaxTokens        = 256
	DefaultClassifierSummaryMaxTokens = 512
	DefaultClassifierTemperature      = 0.2
	DefaultClassifierMaxRetries       = 2
	DefaultClassifierRPS              = 5.0
	DefaultClassifierBurst            = 10

	// Quota defaults
	DefaultQuotaCacheTTL                  = 60 * time.Second
	DefaultQuotaTrialLimit          int64 = 100000
	DefaultQuotaWarnThreshold             = 0.8
	DefaultQuotaRegistrationWarnThreshold = 0.9
	DefaultQuotaSweepSchedule             = "@every 5m"

	// Ledger defaults
	DefaultLedgerBackend           = "memory"
	DefaultLedgerSQLitePath        = "data/usage.db"
	DefaultLedgerSQLiteDriver      = "sqlite"
	DefaultLedgerSQLiteBusyTimeout = 5 * time.Second
	DefaultLedgerSQLiteWALMode     = true
	DefaultLedgerDynamoDBTable     = "converse-usage"

	// Database defaults
	DefaultDatabaseMaxConns int32 = 10

	// Accounts defaults
	DefaultAccountsBackend = "memory"

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultLogRedactPII     = true
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "converse"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "CONVERSE_SECRET_"
	DefaultSecretsSSMPrefix = "/converse/"
	DefaultSecretsCacheTTL  = 5 * time.Minute

	// SweepDisabled turns the cache sweeper off.
	SweepDisabled = "off"
)

// NewDefault returns a configuration with every default applied, including
// the boolean defaults that ApplyDefaults cannot distinguish from an
// explicit false. Files are decoded on top of it.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Ledger.SQLite.WALMode = DefaultLedgerSQLiteWALMode
	cfg.Telemetry.Logging.RedactPII = DefaultLogRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	// Conversation defaults
	if cfg.Conversation.CompactionThreshold == 0 {
		cfg.Conversation.CompactionThreshold = DefaultCompactionThreshold
	}
	if cfg.Conversation.RecentTurns == 0 {
		cfg.Conversation.RecentTurns = DefaultRecentTurns
	}
	if cfg.Conversation.ClassificationWindow == 0 {
		cfg.Conversation.ClassificationWindow = DefaultClassificationWindow
	}
	if cfg.Conversation.HeuristicMaxLength == 0 {
		cfg.Conversation.HeuristicMaxLength = DefaultHeuristicMaxLength
	}
	if cfg.Conversation.HeuristicIntentWindow == 0 {
		cfg.Conversation.HeuristicIntentWindow = DefaultHeuristicIntentWindow
	}

	// Classifier defaults
	if cfg.Classifier.Provider == "" {
		cfg.Classifier.Provider = DefaultClassifierProvider
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = DefaultClassifierModel
	}
	if cfg.Classifier.Timeout == 0 {
		cfg.Classifier.Timeout = DefaultClassifierTimeout
	}
	if cfg.Classifier.MaxTokens == 0 {
		cfg.Classifier.MaxTokens = DefaultClassifierMaxTokens
	}
	if cfg.Classifier.SummaryMaxTokens == 0 {
		cfg.Classifier.SummaryMaxTokens = DefaultClassifierSummaryMaxTokens
	}
	if cfg.Classifier.Temperature == 0 {
		cfg.Classifier.Temperature = DefaultClassifierTemperature
	}
	if cfg.Classifier.MaxRetries == 0 {
		cfg.Classifier.MaxRetries = DefaultClassifierMaxRetries
	}
	if cfg.Classifier.RequestsPerSecond == 0 {
		cfg.Classifier.RequestsPerSecond = DefaultClassifierRPS
	}
	if cfg.Classifier.Burst == 0 {
		cfg.Classifier.Burst = DefaultClassifierBurst
	}

	// Quota defaults
	if cfg.Quota.CacheTTL == 0 {
		cfg.Quota.CacheTTL = DefaultQuotaCacheTTL
	}
	if cfg.Quota.DefaultTrialLimit == 0 {
		cfg.Quota.DefaultTrialLimit = DefaultQuotaTrialLimit
	}
	if cfg.Quota.WarnThreshold == 0 {
		cfg.Quota.WarnThreshold = DefaultQuotaWarnThreshold
	}
	if cfg.Quota.RegistrationWarnThreshold == 0 {
		cfg.Quota.RegistrationWarnThreshold = DefaultQuotaRegistrationWarnThreshold
	}
	if cfg.Quota.SweepSchedule == "" {
		cfg.Quota.SweepSchedule = DefaultQuotaSweepSchedule
	}

	// Ledger defaults
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.SQLite.Path == "" {
		cfg.Ledger.SQLite.Path = DefaultLedgerSQLitePath
	}
	if cfg.Ledger.SQLite.Driver == "" {
		cfg.Ledger.SQLite.Driver = DefaultLedgerSQLiteDriver
	}
	if cfg.Ledger.SQLite.BusyTimeout == 0 {
		cfg.Ledger.SQLite.BusyTimeout = DefaultLedgerSQLiteBusyTimeout
	}
	if cfg.Ledger.DynamoDB.Table == "" {
		cfg.Ledger.DynamoDB.Table = DefaultLedgerDynamoDBTable
	}

	// Database defaults
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDatabaseMaxConns
	}

	// Accounts defaults
	if cfg.Accounts.Backend == "" {
		cfg.Accounts.Backend = DefaultAccountsBackend
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Secrets.SSM.Prefix == "" {
		cfg.Secrets.SSM.Prefix = DefaultSecretsSSMPrefix
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}
}
