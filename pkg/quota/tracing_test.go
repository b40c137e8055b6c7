package quota

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/converse/pkg/telemetry/tracing"
)

func TestSpans_RegisterAndCheck(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	f := newFixture(Policy{})
	f.resolver.tracer = tracing.Tracer(tp)
	f.subscribed("acme", 1000)

	res := f.ledger.RegisterTokenUsage(context.Background(), "acme", 100, 50)
	if !res.Registered {
		t.Fatalf("registration failed: %v", res.Err)
	}

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected check and register spans, got %d", len(spans))
	}
	check, register := spans[0], spans[1]

	if check.Name() != "quota.check" || register.Name() != "quota.register" {
		t.Fatalf("expected quota.check then quota.register, got %s then %s", check.Name(), register.Name())
	}
	if check.Parent().SpanID() != register.SpanContext().SpanID() {
		t.Error("expected the re-resolution to be a child of the registration span")
	}

	attrs := attribute.NewSet(check.Attributes()...)
	if v, _ := attrs.Value("quota.current_usage"); v.AsInt64() != 150 {
		t.Errorf("expected current usage 150 on the span, got %d", v.AsInt64())
	}
	if v, _ := attrs.Value("quota.reason"); v.AsString() != string(ReasonSubscription) {
		t.Errorf("expected reason %s, got %s", ReasonSubscription, v.AsString())
	}

	attrs = attribute.NewSet(register.Attributes()...)
	if v, _ := attrs.Value("quota.registered"); !v.AsBool() {
		t.Error("expected quota.registered=true on the span")
	}
	if register.Status().Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", register.Status().Code)
	}
}

func TestSpans_FailedCheckAndRejectedRegistration(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	f := newFixture(Policy{})
	f.resolver.tracer = tracing.Tracer(tp)

	f.resolver.CheckTokenLimit(context.Background(), "ghost")
	f.ledger.RegisterTokenUsage(context.Background(), "acme", -1, 0)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	for _, s := range spans {
		if s.Status().Code != codes.Error {
			t.Errorf("expected Error status on %s, got %v", s.Name(), s.Status().Code)
		}
	}
	attrs := attribute.NewSet(spans[0].Attributes()...)
	if v, _ := attrs.Value("quota.reason"); v.AsString() != string(ReasonError) {
		t.Errorf("expected reason %s, got %s", ReasonError, v.AsString())
	}
}
