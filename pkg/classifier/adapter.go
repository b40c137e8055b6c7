package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"mercator-hq/converse/pkg/completion"
	"mercator-hq/converse/pkg/conversation"
	"mercator-hq/converse/pkg/conversation/heuristic"
	"mercator-hq/converse/pkg/telemetry/tracing"
)

// Defaults applied by New when a Config field is zero.
const (
	DefaultWindow           = 5
	DefaultTimeout          = 10 * time.Second
	DefaultMaxTokens        = 256
	DefaultSummaryMaxTokens = 512
)

// Fallback causes reported in logs and metrics.
var (
	errNoClient  = errors.New("no completion client configured")
	errNoTurns   = errors.New("no turns to analyze")
	errThrottled = errors.New("completion rate limit wait failed")
	errPanic     = errors.New("completion client panicked")
	errEmpty     = errors.New("empty completion")
)

// Config configures an Adapter.
type Config struct {
	// Client is the completion provider. A nil Client makes every call use
	// the heuristic fallback.
	Client completion.Client

	// Heuristic classifies when the model is unavailable. Defaults to the
	// built-in tables.
	Heuristic *heuristic.Classifier

	Model            string
	MaxTokens        int
	SummaryMaxTokens int
	Temperature      float64

	// Timeout bounds each completion call including the rate limiter wait.
	Timeout time.Duration

	// Window is the number of trailing turns sent for classification.
	Window int

	// RequestsPerSecond limits completion calls across the process. Zero
	// disables limiting.
	RequestsPerSecond float64
	Burst             int

	// TracerProvider receives one span per completion call. Defaults to the
	// global provider.
	TracerProvider trace.TracerProvider

	Metrics *Metrics
	Logger  *slog.Logger
}

// Adapter classifies and summarizes conversations with a completion model.
// It is safe for concurrent use.
type Adapter struct {
	client    completion.Client
	heuristic *heuristic.Classifier
	limiter   *rate.Limiter
	tracer    trace.Tracer
	metrics   *Metrics
	logger    *slog.Logger

	model            string
	maxTokens        int
	summaryMaxTokens int
	temperature      float64
	timeout          time.Duration
	window           int
}

// New creates an Adapter.
func New(cfg Config) *Adapter {
	a := &Adapter{
		client:           cfg.Client,
		heuristic:        cfg.Heuristic,
		tracer:           tracing.Tracer(cfg.TracerProvider),
		metrics:          cfg.Metrics,
		logger:           cfg.Logger,
		model:            cfg.Model,
		maxTokens:        cfg.MaxTokens,
		summaryMaxTokens: cfg.SummaryMaxTokens,
		temperature:      cfg.Temperature,
		timeout:          cfg.Timeout,
		window:           cfg.Window,
	}
	if a.heuristic == nil {
		a.heuristic = heuristic.New(heuristic.DefaultTables())
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.maxTokens <= 0 {
		a.maxTokens = DefaultMaxTokens
	}
	if a.summaryMaxTokens <= 0 {
		a.summaryMaxTokens = DefaultSummaryMaxTokens
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	if a.window <= 0 {
		a.window = DefaultWindow
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return a
}

// Enabled reports whether a completion client is configured.
func (a *Adapter) Enabled() bool {
	return a.client != nil
}

// Heuristic returns the fallback classifier.
func (a *Adapter) Heuristic() *heuristic.Classifier {
	return a.heuristic
}

// Classify classifies the trailing window of turns. It returns an AIResult
// when the model answered with a valid classification and a HeuristicResult
// otherwise.
func (a *Adapter) Classify(ctx context.Context, turns []conversation.Turn) Result {
	window := conversation.LastTurns(turns, a.window)

	fallback := func(cause error) Result {
		a.metrics.recordOutcome(opClassify, string(conversation.SourceHeuristic))
		if !errors.Is(cause, errNoClient) {
			a.metrics.recordFallback(opClassify, causeLabel(cause))
			a.logger.WarnContext(ctx, "intent classification fell back to heuristic",
				"error", cause,
				"retryable", completion.IsRetryable(cause),
				"turns", len(window),
			)
		} else {
			cause = nil
		}
		return HeuristicResult{Intent: a.heuristic.CoarseIntent(window), Cause: cause}
	}

	if a.client == nil {
		return fallback(errNoClient)
	}
	if len(window) == 0 {
		return fallback(errNoTurns)
	}

	req := &completion.Request{
		Model:       a.model,
		System:      classificationSystemPrompt,
		Messages:    []completion.Message{{Role: completion.RoleUser, Content: conversation.Transcript(window)}},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Schema:      classificationSchema,
	}

	resp, latency, err := a.complete(ctx, opClassify, req)
	if err != nil {
		return fallback(err)
	}

	var payload classificationPayload
	if err := resp.Decode(&payload); err != nil {
		return fallback(err)
	}
	analysis, err := payload.analysis()
	if err != nil {
		return fallback(fmt.Errorf("%w: %w", completion.ErrMalformedResponse, err))
	}

	a.metrics.recordOutcome(opClassify, string(conversation.SourceAI))
	a.logger.DebugContext(ctx, "intent classified",
		"intent", analysis.Intent,
		"sentiment", analysis.Sentiment,
		"confidence", analysis.Confidence,
		"latency", latency,
	)
	return AIResult{Analysis: analysis, Usage: resp.Usage, Latency: latency}
}

// ClassifyIntent returns the collapsed analysis of Classify.
func (a *Adapter) ClassifyIntent(ctx context.Context, turns []conversation.Turn) conversation.IntentAnalysis {
	return Collapse(a.Classify(ctx, turns))
}

// Summarize condenses turns into a short plain-text summary. It returns ""
// when there is nothing to summarize or the model is unavailable.
func (a *Adapter) Summarize(ctx context.Context, turns []conversation.Turn) string {
	fail := func(cause error) string {
		a.metrics.recordOutcome(opSummarize, "none")
		if !errors.Is(cause, errNoClient) {
			a.metrics.recordFallback(opSummarize, causeLabel(cause))
			a.logger.WarnContext(ctx, "conversation summary unavailable",
				"error", cause,
				"retryable", completion.IsRetryable(cause),
				"turns", len(turns),
			)
		}
		return ""
	}

	if a.client == nil {
		return fail(errNoClient)
	}
	if len(turns) == 0 {
		return fail(errNoTurns)
	}

	req := &completion.Request{
		Model:       a.model,
		System:      summarySystemPrompt,
		Messages:    []completion.Message{{Role: completion.RoleUser, Content: conversation.Transcript(turns)}},
		MaxTokens:   a.summaryMaxTokens,
		Temperature: a.temperature,
	}

	resp, latency, err := a.complete(ctx, opSummarize, req)
	if err != nil {
		return fail(err)
	}

	summary := flattenMarkdown(resp.Text)
	if summary == "" {
		return fail(errEmpty)
	}

	a.metrics.recordOutcome(opSummarize, string(conversation.SourceAI))
	a.logger.DebugContext(ctx, "conversation summarized",
		"turns", len(turns),
		"summary_chars", len(summary),
		"latency", latency,
	)
	return summary
}

// complete runs one bounded completion call.
func (a *Adapter) complete(ctx context.Context, operation string, req *completion.Request) (resp *completion.Response, latency time.Duration, err error) {
	ctx, span := a.tracer.Start(ctx, "classifier."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("completion.model", req.Model),
			attribute.Int("completion.max_tokens", req.MaxTokens),
		),
	)
	defer func() {
		if err != nil {
			span.SetAttributes(attribute.String("classifier.fallback_cause", causeLabel(err)))
		}
		tracing.SetStatus(span, err)
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if a.limiter != nil {
		if werr := a.limiter.Wait(ctx); werr != nil {
			return nil, 0, fmt.Errorf("%w: %w", errThrottled, werr)
		}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("%w: %v", errPanic, r)
		}
		latency = time.Since(start)
		a.metrics.recordLatency(operation, latency)
	}()

	resp, err = a.client.Complete(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	if resp == nil {
		return nil, 0, errEmpty
	}
	a.metrics.recordTokens(operation, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	span.SetAttributes(
		attribute.Int64("completion.input_tokens", resp.Usage.InputTokens),
		attribute.Int64("completion.output_tokens", resp.Usage.OutputTokens),
	)
	return resp, 0, nil
}

// causeLabel maps a fallback cause to a bounded metric label.
func causeLabel(err error) string {
	var (
		authErr  *completion.AuthError
		rateErr  *completion.RateLimitError
		timeErr  *completion.TimeoutError
		provErr  *completion.ProviderError
		validErr *completion.ValidationError
	)
	switch {
	case errors.Is(err, errThrottled):
		return "throttled"
	case errors.Is(err, errNoTurns):
		return "no_turns"
	case errors.Is(err, errPanic):
		return "panic"
	case errors.Is(err, errEmpty):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &timeErr):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, completion.ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &rateErr):
		return "rate_limited"
	case errors.As(err, &validErr):
		return "invalid_request"
	case errors.As(err, &provErr):
		return "provider"
	default:
		return "other"
	}
}
