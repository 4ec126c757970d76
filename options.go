package analytics

import "time"

// Option is a function that modifies a Config.
type Option func(*Config)

// WithProjectToken sets the project token stamped onto every record.
func WithProjectToken(token string) Option {
	return func(c *Config) {
		c.ProjectToken = token
	}
}

// WithLogger sets a printf-style logger for diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithStructuredLogger sets a leveled logger for diagnostics.
// Takes precedence over WithLogger when both are set.
func WithStructuredLogger(logger StructuredLogger) Option {
	return func(c *Config) {
		c.StructuredLogger = logger
	}
}

// WithMetrics sets the telemetry sink for SDK counters.
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}

// WithErrorHandler sets a callback invoked for every delivery or store
// failure, in addition to logging.
func WithErrorHandler(handler func(error)) Option {
	return func(c *Config) {
		c.ErrorHandler = handler
	}
}

// WithProfileStore sets the profile store. Defaults to an in-memory store.
func WithProfileStore(store ProfileStore) Option {
	return func(c *Config) {
		c.Store = store
	}
}

// WithoutCallSite disables stamping records with the caller's file:line.
func WithoutCallSite() Option {
	return func(c *Config) {
		c.DisableCallSite = true
	}
}

// WithTimeFunc overrides the clock used to stamp records.
// Useful for deterministic tests.
func WithTimeFunc(fn func() time.Time) Option {
	return func(c *Config) {
		c.TimeFunc = fn
	}
}

// WithIDFunc overrides the track ID generator.
// Useful for deterministic tests.
func WithIDFunc(fn func() string) Option {
	return func(c *Config) {
		c.IDFunc = fn
	}
}
