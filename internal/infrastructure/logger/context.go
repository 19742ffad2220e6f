package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TenantKey is the context key for the caller's device and company
	TenantKey contextKey = "tenant"
	// UserIDKey is the context key for the acting user
	UserIDKey contextKey = "user_id"
)

// Tenant identifies the caller of a finance operation for log correlation.
// A zero CompanyID means no company was supplied.
type Tenant struct {
	DeviceID  int64
	CompanyID int64
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enrichedLogger := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enrichedLogger), enrichedLogger
}

// WithTenant adds the caller's device and company to context and returns an enriched logger
func WithTenant(ctx context.Context, logger *zap.Logger, deviceID, companyID int64) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, TenantKey, Tenant{DeviceID: deviceID, CompanyID: companyID})
	enrichedLogger := logger.With(tenantFields(deviceID, companyID)...)
	return WithContext(ctx, enrichedLogger), enrichedLogger
}

// WithUserID adds user ID to context and returns enriched logger
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	enrichedLogger := logger.With(zap.String("user_id", userID))
	return WithContext(ctx, enrichedLogger), enrichedLogger
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetTenant retrieves the caller's device and company from context
func GetTenant(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(TenantKey).(Tenant)
	return t, ok
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

func tenantFields(deviceID, companyID int64) []zap.Field {
	fields := []zap.Field{zap.Int64("tenant_id", deviceID)}
	if companyID != 0 {
		fields = append(fields, zap.Int64("company_id", companyID))
	}
	return fields
}

// WithTraceContext adds trace_id and span_id to the logger from the context's span.
// If no valid span exists, returns the original logger unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// ContextLogger wraps a zap logger and injects the trace and caller fields
// found in its context into every entry.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
	// detached is set when the logger did not come from ctx, so it lacks
	// the request and tenant fields WithRequestID and WithTenant attach.
	detached bool
}

// L returns a ContextLogger from the given context.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
//
// This injects trace_id and span_id from the OpenTelemetry span, plus
// request_id, tenant_id, company_id and user_id when present.
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{
		ctx:    ctx,
		logger: FromContext(ctx),
	}
}

// WithLogger returns a ContextLogger using the provided logger instead of
// extracting from context.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{
		ctx:      ctx,
		logger:   logger,
		detached: true,
	}
}

func (cl *ContextLogger) enrichedLogger() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	if cl.ctx == nil {
		return l
	}

	l = WithTraceContext(cl.ctx, l)

	if cl.detached {
		if requestID := GetRequestID(cl.ctx); requestID != "" {
			l = l.With(zap.String("request_id", requestID))
		}
		if t, ok := GetTenant(cl.ctx); ok {
			l = l.With(tenantFields(t.DeviceID, t.CompanyID)...)
		}
		if userID := GetUserID(cl.ctx); userID != "" {
			l = l.With(zap.String("user_id", userID))
		}
	}

	return l
}

// With creates a child ContextLogger with additional fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{
		ctx:      cl.ctx,
		logger:   cl.logger.With(fields...),
		detached: cl.detached,
	}
}

// Debug logs a debug level message with trace context.
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Debug(msg, fields...)
}

// Info logs an info level message with trace context.
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Info(msg, fields...)
}

// Warn logs a warning level message with trace context.
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Warn(msg, fields...)
}

// Error logs an error level message with trace context.
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Error(msg, fields...)
}

// Zap returns the underlying zap.Logger enriched with trace context.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enrichedLogger()
}
