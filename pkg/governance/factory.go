package governance

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercator-hq/converse/pkg/accounts"
	"mercator-hq/converse/pkg/completion"
	"mercator-hq/converse/pkg/completion/anthropic"
	"mercator-hq/converse/pkg/completion/openai"
	"mercator-hq/converse/pkg/config"
	"mercator-hq/converse/pkg/quota/storage"
	"mercator-hq/converse/pkg/security/secrets"
	"mercator-hq/converse/pkg/telemetry/logging"
)

// Supported provider and backend names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderNone      = "none"

	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

// builder carries shared resources while New assembles a Service.
type builder struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	aws     *aws.Config
	pool    *pgxpool.Pool
	secrets *secrets.Manager
	closers []func() error
}

func (b *builder) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// newLogger builds the configured logger writing to stderr.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	return logging.New(cfg, os.Stderr)
}

// awsConfig loads the default AWS configuration once.
func (b *builder) awsConfig(ctx context.Context) (aws.Config, error) {
	if b.aws != nil {
		return *b.aws, nil
	}
	if b.opts.AWSConfig != nil {
		b.aws = b.opts.AWSConfig
		return *b.aws, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	b.aws = &cfg
	return cfg, nil
}

// secretManager builds the env (and optionally SSM) secret manager.
func (b *builder) secretManager(ctx context.Context) (*secrets.Manager, error) {
	if b.secrets != nil {
		return b.secrets, nil
	}
	if b.opts.Secrets != nil {
		b.secrets = b.opts.Secrets
		return b.secrets, nil
	}

	sc := b.cfg.Secrets
	providers := []secrets.Provider{secrets.NewEnvProvider(sc.EnvPrefix)}

	if sc.SSM.Enabled {
		awsCfg, err := b.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		client := ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
			if sc.SSM.Region != "" {
				o.Region = sc.SSM.Region
			}
		})
		providers = append(providers, secrets.NewSSMProvider(client, sc.SSM.Prefix))
	}

	b.secrets = secrets.NewManager(providers, secrets.CacheConfig{TTL: sc.CacheTTL}, b.logger.With("component", "secrets"))
	return b.secrets, nil
}

// resolve expands ${secret:name} references in value.
func (b *builder) resolve(ctx context.Context, value string) (string, error) {
	if !secrets.IsReference(value) {
		return value, nil
	}
	m, err := b.secretManager(ctx)
	if err != nil {
		return "", err
	}
	return m.Resolve(ctx, value)
}

// postgresPool opens the shared pool on first use.
func (b *builder) postgresPool(ctx context.Context) (*pgxpool.Pool, error) {
	if b.pool != nil {
		return b.pool, nil
	}

	dsn, err := b.resolve(ctx, b.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database dsn: %w", err)
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}
	if b.cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = b.cfg.Database.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	b.pool = pool
	b.onClose(func() error {
		pool.Close()
		return nil
	})
	return pool, nil
}

// completionClient creates the configured completion provider. It returns
// nil for provider "none".
func (b *builder) completionClient(ctx context.Context) (completion.Client, error) {
	if b.opts.Completion != nil {
		return b.opts.Completion, nil
	}

	cc := b.cfg.Classifier
	switch cc.Provider {
	case ProviderNone, "":
		return nil, nil

	case ProviderAnthropic:
		apiKey, err := b.resolve(ctx, cc.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve classifier api key: %w", err)
		}
		return anthropic.New(anthropic.Config{
			APIKey:     apiKey,
			BaseURL:    cc.BaseURL,
			Timeout:    cc.Timeout,
			MaxRetries: cc.MaxRetries,
		}), nil

	case ProviderOpenAI:
		apiKey, err := b.resolve(ctx, cc.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve classifier api key: %w", err)
		}
		client, err := openai.New(openai.Config{
			BaseURL:    cc.BaseURL,
			APIKey:     apiKey,
			Timeout:    cc.Timeout,
			MaxRetries: cc.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		b.onClose(client.Close)
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported classifier provider %q (supported: %s, %s, %s)",
			cc.Provider, ProviderAnthropic, ProviderOpenAI, ProviderNone)
	}
}

// ledgerBackend creates the configured usage storage.
func (b *builder) ledgerBackend(ctx context.Context) (storage.Backend, error) {
	if b.opts.Backend != nil {
		return b.opts.Backend, nil
	}

	lc := b.cfg.Ledger
	var (
		backend storage.Backend
		err     error
	)
	switch lc.Backend {
	case BackendMemory, "":
		backend = storage.NewMemoryBackend()

	case BackendSQLite:
		backend, err = storage.NewSQLiteBackend(storage.SQLiteBackendConfig{
			Path:        lc.SQLite.Path,
			Driver:      lc.SQLite.Driver,
			BusyTimeout: lc.SQLite.BusyTimeout,
			WALMode:     lc.SQLite.WALMode,
		})

	case BackendPostgres:
		var pool *pgxpool.Pool
		if pool, err = b.postgresPool(ctx); err == nil {
			backend, err = storage.NewPostgresBackend(ctx, pool, false)
		}

	case BackendDynamoDB:
		var awsCfg aws.Config
		if awsCfg, err = b.awsConfig(ctx); err == nil {
			client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
				if lc.DynamoDB.Region != "" {
					o.Region = lc.DynamoDB.Region
				}
				if lc.DynamoDB.Endpoint != "" {
					o.BaseEndpoint = aws.String(lc.DynamoDB.Endpoint)
				}
			})
			backend, err = storage.NewDynamoDBBackend(client, lc.DynamoDB.Table)
		}

	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", lc.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s ledger: %w", lc.Backend, err)
	}

	b.onClose(backend.Close)
	return backend, nil
}

// directory creates the configured company directory. A memory directory
// built from config is also returned separately so reloads can refresh it.
func (b *builder) directory(ctx context.Context) (accounts.Directory, *accounts.MemoryDirectory, error) {
	// An injected directory belongs to the host; reloads never touch it.
	if b.opts.Directory != nil {
		return b.opts.Directory, nil, nil
	}

	switch b.cfg.Accounts.Backend {
	case BackendMemory, "":
		mem, err := accounts.NewMemoryDirectory(b.cfg.Accounts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load accounts: %w", err)
		}
		return mem, mem, nil

	case BackendPostgres:
		pool, err := b.postgresPool(ctx)
		if err != nil {
			return nil, nil, err
		}
		dir, err := accounts.NewPostgresDirectory(pool)
		if err != nil {
			return nil, nil, err
		}
		return dir, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported accounts backend %q", b.cfg.Accounts.Backend)
	}
}
