package versol

import (
	"context"
	"errors"
	"log/slog"
)

// Option configures solver behavior.
type Option func(*solverConfig) error

// solverConfig holds all solver configuration.
type solverConfig struct {
	// maxDecisions caps the number of version decisions a single
	// Solve call may make. Zero means unlimited.
	maxDecisions int

	// logger is the structured logger for debug/info output.
	// If nil, logging is disabled (silent mode).
	//
	// Design decision: We use *slog.Logger (Go 1.21+ stdlib) rather than a custom
	// interface because slog provides frontend/backend separation by design.
	// Users can plug in any backend (zap, zerolog, etc.) via slog handlers.
	// See: https://go.dev/blog/slog
	logger *slog.Logger
}

// WithMaxDecisions limits how many version decisions Solve may make
// before giving up with ErrDecisionLimit. Useful as a safety valve
// against pathological dependency graphs.
func WithMaxDecisions(n int) Option {
	return func(c *solverConfig) error {
		c.maxDecisions = n
		return nil
	}
}

// WithLogger sets a structured logger for solver diagnostics.
// If not set, logging is disabled (silent mode).
//
// The library uses log/slog (Go 1.21+) which supports any backend via handlers.
//
// Example:
//
//	// Use default logger
//	Solve(ctx, provider, reqs, WithLogger(slog.Default()))
//
//	// Use custom logger with attributes
//	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "solver")
//	Solve(ctx, provider, reqs, WithLogger(logger))
func WithLogger(l *slog.Logger) Option {
	return func(c *solverConfig) error {
		c.logger = l
		return nil
	}
}

// validate checks the configuration for logical consistency.
func (c *solverConfig) validate() error {
	if c.maxDecisions < 0 {
		return errors.New("max decisions must not be negative")
	}
	return nil
}

// log returns the configured logger, or a no-op logger if none was set.
// This allows internal code to call logging methods without nil checks.
//
// Design: Libraries should be silent by default. Users opt-in to logging
// via WithLogger(). This avoids surprising output and respects the principle
// that libraries shouldn't write to stdout/stderr without explicit consent.
func (c *solverConfig) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	// Return a logger that discards all output
	return slog.New(discardHandler{})
}

// discardHandler is a slog.Handler that discards all log records.
// This is used when no logger is configured to avoid nil checks throughout the code.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// newSolverConfig creates a new solver configuration by applying the
// given options and validating the result.
func newSolverConfig(opts ...Option) (*solverConfig, error) {
	c := &solverConfig{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}
