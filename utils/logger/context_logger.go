package logger

import (
	"context"
	"log/slog"
	"time"
)

// ContextKey is the type for context keys used in logging
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
	OperationKey ContextKey = "operation"

	// Navigation context keys, prefixed like OpenTelemetry semantic conventions.
	NavSourceKey ContextKey = "kyc.nav.source"
	NavTargetKey ContextKey = "kyc.nav.target"
	GateKeyKey   ContextKey = "kyc.gate.key"
)

// GlobalContext is the global ContextLogger instance
var GlobalContext *ContextLogger

// ContextLogger wraps a slog.Logger to add context-aware logging
type ContextLogger struct {
	logger *slog.Logger
}

// NewContextLogger creates a new ContextLogger wrapping the provided logger
func NewContextLogger(logger *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext adds context values to log entries and returns a new logger
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	args := make([]any, 0)

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		args = append(args, "request_id", requestID)
	}

	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		args = append(args, "user_id", userID)
	}

	if operation, ok := ctx.Value(OperationKey).(string); ok {
		args = append(args, "operation", operation)
	}

	for _, key := range []ContextKey{NavSourceKey, NavTargetKey, GateKeyKey} {
		if v, ok := ctx.Value(key).(string); ok {
			args = append(args, string(key), v)
		}
	}

	return cl.logger.With(args...)
}

// LogDuration logs an operation completion with duration in milliseconds
func (cl *ContextLogger) LogDuration(ctx context.Context, operation string, durationMs int64) {
	cl.WithContext(ctx).Info("operation completed",
		"operation", operation,
		"duration_ms", durationMs,
	)
}

// LogDurationTime is a convenience function that takes time.Duration
func (cl *ContextLogger) LogDurationTime(ctx context.Context, operation string, duration time.Duration) {
	cl.LogDuration(ctx, operation, duration.Milliseconds())
}

// LogError logs an operation failure with error details
func (cl *ContextLogger) LogError(ctx context.Context, operation string, err error) {
	cl.WithContext(ctx).Error("operation failed",
		"operation", operation,
		"error", err,
	)
}

// FromContext returns a logger enriched with ctx values. It falls back to
// base when GlobalContext has not been initialized.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base != nil {
		return NewContextLogger(base).WithContext(ctx)
	}
	if GlobalContext != nil {
		return GlobalContext.WithContext(ctx)
	}
	return slog.Default()
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

// WithNavigation records the source and target of a navigation attempt.
func WithNavigation(ctx context.Context, source, target string) context.Context {
	ctx = context.WithValue(ctx, NavSourceKey, source)
	return context.WithValue(ctx, NavTargetKey, target)
}

// WithGateKey records the identity cache key being gated.
func WithGateKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, GateKeyKey, key)
}
