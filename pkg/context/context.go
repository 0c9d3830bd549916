package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Context keys for run tracing and correlation.
// Using unexported struct pointers prevents key collisions.
var (
	runIDKey        = &struct{}{}
	systemNumberKey = &struct{}{}
	operationKey    = &struct{}{}
	startTimeKey    = &struct{}{}
)

// WithRunID adds a run ID to the context
func WithRunID(parent context.Context, runID string) context.Context {
	if runID == "" {
		runID = GenerateRunID()
	}
	return context.WithValue(parent, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		return id
	}
	return "unknown-run"
}

// WithSystemNumber adds the 1-based system counter to the context
func WithSystemNumber(parent context.Context, number int) context.Context {
	return context.WithValue(parent, systemNumberKey, number)
}

// GetSystemNumber retrieves the system counter from context; 0 when absent
func GetSystemNumber(ctx context.Context) int {
	if n, ok := ctx.Value(systemNumberKey).(int); ok {
		return n
	}
	return 0
}

// WithOperation adds an operation name to the context
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok && op != "" {
		return op
	}
	return "unknown-operation"
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the operation start time from context
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

// GetDuration calculates the duration since the start time in context
func GetDuration(ctx context.Context) time.Duration {
	startTime := GetStartTime(ctx)
	return time.Since(startTime)
}

// GenerateRunID creates a new unique run ID
func GenerateRunID() string {
	return "run_" + uuid.New().String()
}

// GenerateRequestID creates a new unique calculation request ID
func GenerateRequestID() string {
	return "req_" + uuid.New().String()
}

// EnrichRunContext stamps a fresh run ID and start time onto a context
func EnrichRunContext(parent context.Context) context.Context {
	ctx := parent

	// Add run ID if not present
	if GetRunID(ctx) == "unknown-run" {
		ctx = WithRunID(ctx, GenerateRunID())
	}

	// Add start time
	ctx = WithStartTime(ctx, time.Now())

	return ctx
}

// TracingFields returns common tracing fields for structured logging
func TracingFields(ctx context.Context) map[string]interface{} {
	fields := map[string]interface{}{
		"run_id":      GetRunID(ctx),
		"operation":   GetOperation(ctx),
		"duration_ms": GetDuration(ctx).Milliseconds(),
	}
	if n := GetSystemNumber(ctx); n > 0 {
		fields["system"] = n
	}
	return fields
}
