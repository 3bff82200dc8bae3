package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyRunID    contextKey = "run_id"
	keyThreadID contextKey = "thread_id"
)

// WithRunID adds run ID to context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, keyRunID, runID)
}

// RunID extracts run ID from context.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRunID).(string)
	return v, ok && v != ""
}

// WithThreadID adds the checkpoint thread ID to context.
func WithThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, keyThreadID, threadID)
}

// ThreadID extracts the checkpoint thread ID from context.
func ThreadID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyThreadID).(string)
	return v, ok && v != ""
}
