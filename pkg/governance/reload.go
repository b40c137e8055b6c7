package governance

import (
	"context"
	"fmt"

	"mercator-hq/converse/pkg/config"
)

// ApplyConfig applies the hot-reloadable parts of cfg: the quota policy and,
// for the memory accounts backend, the static companies and plans. Changes
// to providers or backends are logged and ignored until restart.
func (s *Service) ApplyConfig(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if s.memDir != nil && cfg.Accounts.Backend == BackendMemory {
		if err := s.memDir.Load(cfg.Accounts); err != nil {
			return fmt.Errorf("failed to reload accounts: %w", err)
		}
	}

	s.resolver.SetPolicy(policyFromConfig(cfg.Quota))
	s.resolver.Cache().Clear()

	prev := s.cfg.Swap(cfg)
	if prev != nil {
		for _, field := range restartRequired(prev, cfg) {
			s.logger.Warn("configuration change requires restart", "field", field)
		}
	}

	policy := s.resolver.Policy()
	s.logger.Info("configuration applied",
		"cache_ttl", policy.CacheTTL,
		"default_trial_limit", policy.DefaultTrialLimit,
		"warn_threshold", policy.WarnThreshold,
		"registration_warn_threshold", policy.RegistrationWarnThreshold,
	)
	return nil
}

// restartRequired lists changed fields that ApplyConfig cannot swap.
func restartRequired(prev, next *config.Config) []string {
	var fields []string
	if prev.Classifier.Provider != next.Classifier.Provider {
		fields = append(fields, "classifier.provider")
	}
	if prev.Classifier.Model != next.Classifier.Model {
		fields = append(fields, "classifier.model")
	}
	if prev.Ledger.Backend != next.Ledger.Backend {
		fields = append(fields, "ledger.backend")
	}
	if prev.Accounts.Backend != next.Accounts.Backend {
		fields = append(fields, "accounts.backend")
	}
	if prev.Database.DSN != next.Database.DSN {
		fields = append(fields, "database.dsn")
	}
	if prev.Conversation != next.Conversation {
		fields = append(fields, "conversation")
	}
	if prev.Quota.SweepSchedule != next.Quota.SweepSchedule {
		fields = append(fields, "quota.sweep_schedule")
	}
	return fields
}

// Watch reloads the configuration file at path whenever it changes and
// applies it. It blocks until ctx is done.
func (s *Service) Watch(ctx context.Context, path string) error {
	w, err := config.NewWatcher(path, 0, s.logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	return w.Watch(ctx, func(cfg *config.Config) {
		if err := s.ApplyConfig(cfg); err != nil {
			s.logger.Error("failed to apply reloaded configuration", "path", path, "error", err)
		}
	})
}
