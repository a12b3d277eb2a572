// Package logging defines the structured-logging interface used by the
// services, stores and transport. The default implementation wraps log/slog.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "collection shared", "owner", ownerID, "members", n)
type Logger interface {
	// Debug logs diagnostic detail (store paths, resolver stages).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs degraded but non-fatal conditions, such as a swallowed
	// reverse-geocode failure.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures, including data-integrity problems in stored records.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}
