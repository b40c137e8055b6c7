package governance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/converse/pkg/accounts"
	"mercator-hq/converse/pkg/classifier"
	"mercator-hq/converse/pkg/compactor"
	"mercator-hq/converse/pkg/completion"
	"mercator-hq/converse/pkg/config"
	"mercator-hq/converse/pkg/conversation"
	"mercator-hq/converse/pkg/conversation/heuristic"
	"mercator-hq/converse/pkg/quota"
	"mercator-hq/converse/pkg/quota/storage"
	"mercator-hq/converse/pkg/security/secrets"
	"mercator-hq/converse/pkg/telemetry/health"
)

// Options overrides collaborators New would otherwise build from the
// configuration. Overridden collaborators are not closed by Service.Close.
type Options struct {
	// Logger replaces the logger built from telemetry.logging.
	Logger *slog.Logger

	// Registerer receives the collectors when metrics are enabled.
	// Default: prometheus.DefaultRegisterer
	Registerer prometheus.Registerer

	// TracerProvider receives spans for completion calls, quota checks and
	// usage registrations. Default: the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider

	Completion completion.Client
	Directory  accounts.Directory
	Backend    storage.Backend
	Secrets    *secrets.Manager

	// AWSConfig replaces the default credential chain for DynamoDB and SSM.
	AWSConfig *aws.Config
}

// Service is the governance facade. It is safe for concurrent use.
type Service struct {
	cfg atomic.Pointer[config.Config]

	heuristic  *heuristic.Classifier
	classifier *classifier.Adapter
	compactor  *compactor.Compactor
	resolver   *quota.Resolver
	ledger     *quota.Ledger
	sweeper    *quota.Sweeper
	memDir     *accounts.MemoryDirectory
	health     *health.Checker
	logger     *slog.Logger

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// New builds a Service from cfg. The configuration is validated first.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Service, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = newLogger(cfg.Telemetry.Logging); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	b := &builder{cfg: cfg, opts: opts, logger: logger}
	svc, err := b.build(ctx)
	if err != nil {
		closeAll(b.closers)
		return nil, err
	}
	svc.cfg.Store(cfg)

	logger.Info("governance service initialized",
		"classifier_provider", cfg.Classifier.Provider,
		"classifier_enabled", svc.classifier.Enabled(),
		"ledger_backend", cfg.Ledger.Backend,
		"accounts_backend", cfg.Accounts.Backend,
		"metrics_enabled", cfg.Telemetry.Metrics.Enabled,
	)
	return svc, nil
}

func (b *builder) build(ctx context.Context) (*Service, error) {
	cfg := b.cfg

	var (
		quotaMetrics      *quota.Metrics
		classifierMetrics *classifier.Metrics
	)
	if cfg.Telemetry.Metrics.Enabled {
		reg := b.opts.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		quotaMetrics = quota.NewMetrics(reg, cfg.Telemetry.Metrics.Namespace)
		classifierMetrics = classifier.NewMetrics(reg, cfg.Telemetry.Metrics.Namespace)
	}

	client, err := b.completionClient(ctx)
	if err != nil {
		return nil, err
	}
	backend, err := b.ledgerBackend(ctx)
	if err != nil {
		return nil, err
	}
	directory, memDir, err := b.directory(ctx)
	if err != nil {
		return nil, err
	}

	tables := heuristic.DefaultTables()
	tables.MaxLength = cfg.Conversation.HeuristicMaxLength
	tables.IntentWindow = cfg.Conversation.HeuristicIntentWindow
	h := heuristic.New(tables)

	adapter := classifier.New(classifier.Config{
		Client:            client,
		Heuristic:         h,
		Model:             cfg.Classifier.Model,
		MaxTokens:         cfg.Classifier.MaxTokens,
		SummaryMaxTokens:  cfg.Classifier.SummaryMaxTokens,
		Temperature:       cfg.Classifier.Temperature,
		Timeout:           cfg.Classifier.Timeout,
		Window:            cfg.Conversation.ClassificationWindow,
		RequestsPerSecond: cfg.Classifier.RequestsPerSecond,
		Burst:             cfg.Classifier.Burst,
		TracerProvider:    b.opts.TracerProvider,
		Metrics:           classifierMetrics,
		Logger:            b.logger.With("component", "classifier"),
	})

	cache := quota.NewCache()
	cache.SetMetrics(quotaMetrics)

	resolver, err := quota.NewResolver(quota.ResolverConfig{
		Directory:      directory,
		Backend:        backend,
		Cache:          cache,
		Policy:         policyFromConfig(cfg.Quota),
		Metrics:        quotaMetrics,
		TracerProvider: b.opts.TracerProvider,
		Logger:         b.logger.With("component", "quota.resolver"),
	})
	if err != nil {
		return nil, err
	}
	ledger, err := quota.NewLedger(resolver, b.logger.With("component", "quota.ledger"))
	if err != nil {
		return nil, err
	}

	svc := &Service{
		heuristic:  h,
		classifier: adapter,
		compactor: compactor.New(adapter, compactor.Config{
			Threshold:   cfg.Conversation.CompactionThreshold,
			RecentTurns: cfg.Conversation.RecentTurns,
			Logger:      b.logger.With("component", "compactor"),
		}),
		resolver: resolver,
		ledger:   ledger,
		memDir:   memDir,
		health:   newHealthChecker(client, backend, directory),
		logger:   b.logger.With("component", "governance"),
		closers:  b.closers,
	}
	if cfg.Quota.SweepSchedule != config.SweepDisabled {
		svc.sweeper = quota.NewSweeper(cache, cfg.Quota.SweepSchedule, quotaMetrics,
			b.logger.With("component", "quota.sweeper"))
	}
	return svc, nil
}

// healthProbeCompany is read by the ledger check; it never has usage.
const healthProbeCompany = "__health__"

// newHealthChecker registers readiness checks for the collaborators. Storage
// and directory are critical because quota checks fail closed without them.
func newHealthChecker(client completion.Client, backend storage.Backend, directory accounts.Directory) *health.Checker {
	c := health.New(0)
	c.Register("ledger", true, func(ctx context.Context) error {
		_, err := backend.Get(ctx, healthProbeCompany, time.Now())
		return err
	})
	c.Register("accounts", true, func(ctx context.Context) error {
		_, err := directory.GetTrialPlan(ctx)
		return err
	})
	if hc, ok := client.(interface{ Health() completion.Health }); ok {
		c.Register("classifier", false, func(context.Context) error {
			h := hc.Health()
			if !h.Healthy {
				return fmt.Errorf("provider unhealthy after %d consecutive failures: %v", h.ConsecutiveFailures, h.LastError)
			}
			return nil
		})
	}
	return c
}

// policyFromConfig maps the quota section onto a quota.Policy.
func policyFromConfig(qc config.QuotaConfig) quota.Policy {
	return quota.Policy{
		CacheTTL:                  qc.CacheTTL,
		DefaultTrialLimit:         qc.DefaultTrialLimit,
		WarnThreshold:             qc.WarnThreshold,
		RegistrationWarnThreshold: qc.RegistrationWarnThreshold,
	}
}

// Start schedules background maintenance until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	if s.sweeper == nil {
		return nil
	}
	return s.sweeper.Start(ctx)
}

// PrepareConversationContext builds the reply context for the full history.
func (s *Service) PrepareConversationContext(ctx context.Context, turns []conversation.Turn) *conversation.Context {
	return s.compactor.PrepareContext(ctx, turns)
}

// FormatContextForPrompt renders cc as a prompt block, or "" when there is no
// summary.
func (s *Service) FormatContextForPrompt(cc *conversation.Context) string {
	return compactor.FormatContextForPrompt(cc)
}

// IsEndOfConversation reports whether text is a closing message.
func (s *Service) IsEndOfConversation(text string) bool {
	return s.heuristic.IsEndOfConversation(text)
}

// ClassifyFarewell returns the farewell category of a closing message.
func (s *Service) ClassifyFarewell(text string) (conversation.FarewellType, bool) {
	return s.heuristic.ClassifyFarewell(text)
}

// ClassifyIntent classifies the trailing turns without building a context.
func (s *Service) ClassifyIntent(ctx context.Context, turns []conversation.Turn) conversation.IntentAnalysis {
	return s.classifier.ClassifyIntent(ctx, turns)
}

// CheckTokenLimit returns the company's quota decision. Failures block.
func (s *Service) CheckTokenLimit(ctx context.Context, companyID string) *quota.Decision {
	return s.resolver.CheckTokenLimit(ctx, companyID)
}

// RegisterTokenUsage records consumed tokens. Failures leave Registered
// false.
func (s *Service) RegisterTokenUsage(ctx context.Context, companyID string, inputTokens, outputTokens int64) *quota.RegistrationResult {
	return s.ledger.RegisterTokenUsage(ctx, companyID, inputTokens, outputTokens)
}

// UsageHistory returns up to months usage buckets, newest first.
func (s *Service) UsageHistory(ctx context.Context, companyID string, months int) ([]*storage.UsageRecord, error) {
	return s.ledger.UsageHistory(ctx, companyID, months)
}

// Health runs the readiness checks.
func (s *Service) Health(ctx context.Context) health.Report {
	return s.health.Check(ctx)
}

// Config returns the configuration in effect.
func (s *Service) Config() *config.Config {
	return s.cfg.Load()
}

// Close stops background work and releases storage, pools and clients
// created by New. It is safe to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		s.closeErr = closeAll(s.closers)
		s.logger.Info("governance service closed")
	})
	return s.closeErr
}

// closeAll runs closers in reverse creation order.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
