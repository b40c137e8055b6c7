package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/converse/pkg/quota/storage"
	"mercator-hq/converse/pkg/telemetry/tracing"
)

// ErrInvalidTokens is reported when a registration carries negative counts.
var ErrInvalidTokens = errors.New("token counts cannot be negative")

// Ledger records token consumption and keeps the resolver's cache honest.
type Ledger struct {
	backend  storage.Backend
	resolver *Resolver
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewLedger creates a ledger writing to the resolver's backend and
// invalidating its cache.
func NewLedger(resolver *Resolver, logger *slog.Logger) (*Ledger, error) {
	if resolver == nil {
		return nil, errors.New("quota: resolver is required")
	}
	if logger == nil {
		logger = slog.Default().With("component", "quota.ledger")
	}
	return &Ledger{
		backend:  resolver.backend,
		resolver: resolver,
		metrics:  resolver.metrics,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// RegisterTokenUsage adds the tokens to the company's current month with a
// single atomic increment, invalidates the cached usage and re-resolves the
// quota. It never returns an error; failures leave Registered false.
func (l *Ledger) RegisterTokenUsage(ctx context.Context, companyID string, inputTokens, outputTokens int64) *RegistrationResult {
	res := &RegistrationResult{
		ID:        uuid.NewString(),
		CompanyID: companyID,
	}

	ctx, span := l.resolver.tracer.Start(ctx, "quota.register",
		trace.WithAttributes(
			attribute.String("quota.company_id", companyID),
			attribute.String("quota.registration_id", res.ID),
			attribute.Int64("quota.input_tokens", inputTokens),
			attribute.Int64("quota.output_tokens", outputTokens),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("quota.registered", res.Registered))
		tracing.SetStatus(span, res.Err)
		span.End()
	}()

	switch {
	case companyID == "":
		res.Err = storage.ErrEmptyCompanyID
	case inputTokens < 0 || outputTokens < 0:
		res.Err = fmt.Errorf("%w: input=%d output=%d", ErrInvalidTokens, inputTokens, outputTokens)
	}
	if res.Err != nil {
		l.metrics.recordRegistrationFailure("invalid")
		l.logger.WarnContext(ctx, "rejected usage registration",
			"registration_id", res.ID,
			"company_id", companyID,
			"error", res.Err,
		)
		return res
	}

	rec, err := l.backend.Increment(ctx, companyID, l.now(), inputTokens, outputTokens)
	if err != nil {
		res.Err = fmt.Errorf("failed to persist usage: %w", err)
		l.metrics.recordRegistrationFailure("storage")
		l.logger.ErrorContext(ctx, "usage registration failed, continuing without accounting",
			"registration_id", res.ID,
			"company_id", companyID,
			"input_tokens", inputTokens,
			"output_tokens", outputTokens,
			"error", err,
		)
		return res
	}

	res.Registered = true
	res.Usage = rec
	l.metrics.recordRegistered(inputTokens, outputTokens)

	l.resolver.cache.Invalidate(companyID)

	decision := l.resolver.CheckTokenLimit(ctx, companyID)
	res.Decision = decision
	res.LimitReached = decision.LimitReached

	threshold := l.resolver.Policy().RegistrationWarnThreshold
	if decision.Reason != ReasonError && !decision.Unlimited() && decision.PercentUsed >= threshold*100 {
		res.Warning = warningMessage(decision.PercentUsed)
		if decision.LimitReached {
			res.Warning = decision.Message
		}
	}

	l.logger.DebugContext(ctx, "usage registered",
		"registration_id", res.ID,
		"company_id", companyID,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"month_total", rec.Total(),
		"limit_reached", res.LimitReached,
	)

	return res
}

// UsageHistory returns up to months buckets for the company, newest first.
func (l *Ledger) UsageHistory(ctx context.Context, companyID string, months int) ([]*storage.UsageRecord, error) {
	if companyID == "" {
		return nil, storage.ErrEmptyCompanyID
	}
	records, err := l.backend.History(ctx, companyID, months)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage history: %w", err)
	}
	return records, nil
}
