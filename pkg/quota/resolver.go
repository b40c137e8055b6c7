package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/converse/pkg/accounts"
	"mercator-hq/converse/pkg/quota/storage"
	"mercator-hq/converse/pkg/telemetry/tracing"
)

// ResolverConfig wires a Resolver.
type ResolverConfig struct {
	Directory accounts.Directory
	Backend   storage.Backend

	// Cache is shared with the Ledger so registrations can invalidate it.
	// A new cache is created when nil.
	Cache *Cache

	Policy         Policy
	Metrics        *Metrics
	TracerProvider trace.TracerProvider
	Logger         *slog.Logger
}

// Resolver produces quota decisions.
type Resolver struct {
	directory accounts.Directory
	backend   storage.Backend
	cache     *Cache
	policy    atomic.Pointer[Policy]
	metrics   *Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// NewResolver creates a resolver. Directory and Backend are required.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Directory == nil {
		return nil, errors.New("quota: directory is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("quota: storage backend is required")
	}

	r := &Resolver{
		directory: cfg.Directory,
		backend:   cfg.Backend,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
		tracer:    tracing.Tracer(cfg.TracerProvider),
		logger:    cfg.Logger,
		now:       time.Now,
	}
	if r.cache == nil {
		r.cache = NewCache()
	}
	if r.logger == nil {
		r.logger = slog.Default().With("component", "quota.resolver")
	}
	r.SetPolicy(cfg.Policy)

	return r, nil
}

// SetPolicy replaces the policy; zero fields take defaults.
func (r *Resolver) SetPolicy(p Policy) {
	p = p.withDefaults()
	r.policy.Store(&p)
}

// Policy returns the policy in effect.
func (r *Resolver) Policy() Policy {
	return *r.policy.Load()
}

// Cache returns the usage cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// CheckTokenLimit resolves the company's quota. It never returns an error:
// any failure produces a blocked decision with ReasonError.
func (r *Resolver) CheckTokenLimit(ctx context.Context, companyID string) *Decision {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "quota.check",
		trace.WithAttributes(attribute.String("quota.company_id", companyID)),
	)
	defer span.End()

	d, err := r.resolve(ctx, companyID)
	if err != nil {
		r.logger.ErrorContext(ctx, "quota resolution failed, blocking",
			"company_id", companyID,
			"error", err,
		)
		d = blockedDecision(companyID, ReasonError, MessageUnavailable, r.now())
	}

	span.SetAttributes(
		attribute.String("quota.reason", string(d.Reason)),
		attribute.Bool("quota.limit_reached", d.LimitReached),
		attribute.Int64("quota.current_usage", d.CurrentUsage),
		attribute.Int64("quota.monthly_limit", d.MonthlyLimit),
	)
	tracing.SetStatus(span, err)
	r.metrics.recordCheck(d, time.Since(start).Seconds())
	return d
}

func (r *Resolver) resolve(ctx context.Context, companyID string) (*Decision, error) {
	if companyID == "" {
		return nil, storage.ErrEmptyCompanyID
	}

	company, err := r.directory.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	policy := r.Policy()

	subscribed := company.HasActiveSubscription(now)
	if !subscribed && !company.IsTrialActive(now) {
		return blockedDecision(companyID, ReasonExpired, MessageExpired, now), nil
	}

	limit, reason, err := r.effectiveLimit(ctx, company, subscribed, policy)
	if err != nil {
		return nil, err
	}

	usage, hit, err := r.cache.GetOrCompute(ctx, companyID, policy.CacheTTL, func(ctx context.Context) (Usage, error) {
		rec, err := r.backend.Get(ctx, companyID, now)
		if err != nil {
			return Usage{}, fmt.Errorf("failed to read usage: %w", err)
		}
		return Usage{Tokens: rec.Total(), Timestamp: now}, nil
	})
	if err != nil {
		return nil, err
	}
	if hit {
		r.logger.DebugContext(ctx, "quota cache hit",
			"company_id", companyID,
			"age", now.Sub(usage.Timestamp),
		)
	}

	return evaluate(companyID, usage.Tokens, limit, reason, policy.WarnThreshold, now), nil
}

// effectiveLimit applies override, plan and trial precedence.
func (r *Resolver) effectiveLimit(ctx context.Context, company *accounts.Company, subscribed bool, policy Policy) (int64, Reason, error) {
	if limit, ok := company.Override(); ok {
		return limit, ReasonOverride, nil
	}

	if subscribed {
		plan := company.Subscription.Plan
		if plan == nil {
			return 0, "", fmt.Errorf("company %s has an active subscription without a plan", company.ID)
		}
		if plan.Unlimited() {
			return Unlimited, ReasonSubscription, nil
		}
		return plan.MaxTokensMonth, ReasonSubscription, nil
	}

	trial, err := r.directory.GetTrialPlan(ctx)
	if err != nil {
		return 0, "", err
	}
	if trial == nil {
		return policy.DefaultTrialLimit, ReasonTrial, nil
	}
	if trial.Unlimited() {
		return Unlimited, ReasonTrial, nil
	}
	return trial.MaxTokensMonth, ReasonTrial, nil
}
