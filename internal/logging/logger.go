// Package logging defines the structured-logging interface the voting
// backend codes against. The concrete implementation wraps slog, but
// nothing outside this package depends on that.
package logging

import "context"

// Logger is a context-aware, structured logger. Variadic args are key-value
// pairs:
//
//	log.Info(ctx, "http server listening", "addr", addr)
type Logger interface {
	// Info logs routine operational messages.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying the given key-value pairs on
	// every record it emits.
	With(args ...any) Logger
}
