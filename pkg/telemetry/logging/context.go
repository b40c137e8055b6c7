package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"mercator-hq/converse/pkg/telemetry/tracing"
)

type contextKey string

const (
	// CompanyIDKey is the context key for the tenant company.
	CompanyIDKey contextKey = "company_id"

	// ConversationIDKey is the context key for the conversation.
	ConversationIDKey contextKey = "conversation_id"

	// RequestIDKey is the context key for the inbound turn being processed.
	RequestIDKey contextKey = "request_id"
)

// WithCompanyID adds a company identifier to the context.
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, CompanyIDKey, companyID)
}

// GetCompanyID retrieves the company identifier from the context.
func GetCompanyID(ctx context.Context) string {
	v, _ := ctx.Value(CompanyIDKey).(string)
	return v
}

// WithConversationID adds a conversation identifier to the context.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, ConversationIDKey, conversationID)
}

// GetConversationID retrieves the conversation identifier from the context.
func GetConversationID(ctx context.Context) string {
	v, _ := ctx.Value(ConversationIDKey).(string)
	return v
}

// WithRequestID adds a request ID to the context. An empty id generates a
// new random one.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

// Attrs returns the identifiers carried by ctx as log attributes, including
// the trace and span IDs of an active span.
func Attrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(RequestIDKey), v))
	}
	if v := GetCompanyID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(CompanyIDKey), v))
	}
	if v := GetConversationID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(ConversationIDKey), v))
	}
	if v := tracing.TraceID(ctx); v != "" {
		attrs = append(attrs, slog.String("trace_id", v), slog.String("span_id", tracing.SpanID(ctx)))
	}
	return attrs
}
