package domain

import (
	"context"
)

// Logger defines the interface for logging within the application.
// Implementations handle structured logging (e.g., JSON with Zap).
// All logging methods accept a context.Context as the first argument so that
// request-scoped values (request ID, user ID) can be attached automatically.
// The variadic `fields` argument carries structured key-value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any) // Using `any` for fields to be Zap-agnostic at interface level
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // Fatal will call os.Exit(1) after logging

	// With creates a child logger with the provided structured context fields.
	With(fields ...any) Logger
}
