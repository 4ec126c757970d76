package analytics

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds the configuration for a Tracker.
type Config struct {
	// ProjectToken optionally identifies the project records belong to.
	// When set, it is stamped onto every emitted record.
	ProjectToken string

	// Logger is a printf-style logger for diagnostics.
	Logger Logger

	// StructuredLogger is a leveled logger for diagnostics.
	// Takes precedence over Logger when both are set.
	StructuredLogger StructuredLogger

	// Metrics receives SDK telemetry counters. Optional.
	Metrics Metrics

	// ErrorHandler is called for every delivery or store failure,
	// in addition to logging.
	ErrorHandler func(error)

	// Store holds per-user profiles. Defaults to an in-memory store.
	Store ProfileStore

	// DisableCallSite disables stamping records with the caller's
	// file:line. Capture is enabled by default.
	DisableCallSite bool

	// TimeFunc supplies the emission timestamp. Defaults to time.Now.
	TimeFunc func() time.Time

	// IDFunc supplies track IDs. Defaults to random UUIDs.
	IDFunc func() string
}

// applyDefaults fills unset fields with their defaults.
func (c *Config) applyDefaults() {
	if c.Store == nil {
		c.Store = NewMemoryProfileStore()
	}
	if c.TimeFunc == nil {
		c.TimeFunc = time.Now
	}
	if c.IDFunc == nil {
		c.IDFunc = uuid.NewString
	}
}

// validate checks the configuration for inconsistencies.
func (c *Config) validate() error {
	if c.Store == nil {
		return NewValidationError("store", "cannot be nil")
	}
	if c.TimeFunc == nil {
		return NewValidationError("time_func", "cannot be nil")
	}
	if c.IDFunc == nil {
		return NewValidationError("id_func", "cannot be nil")
	}
	return nil
}

// Environment variable names for configuration.
const (
	// EnvProjectToken is the environment variable for the project token.
	EnvProjectToken = "ANALYTICS_PROJECT_TOKEN"
	// EnvLogPath is the environment variable for the log consumer path.
	EnvLogPath = "ANALYTICS_LOG_PATH"
)

// NewTrackerFromEnv creates a tracker configured from environment
// variables. ANALYTICS_LOG_PATH selects the log file the records go to;
// ANALYTICS_PROJECT_TOKEN optionally sets the project token.
//
// Example:
//
//	tracker, err := analytics.NewTrackerFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracker.Close()
func NewTrackerFromEnv(opts ...Option) (*Tracker, error) {
	path := os.Getenv(EnvLogPath)
	if path == "" {
		return nil, fmt.Errorf("analytics: %s environment variable is required", EnvLogPath)
	}

	consumer, err := NewLogConsumer(path)
	if err != nil {
		return nil, err
	}

	envOpts := make([]Option, 0, 1)
	if token := os.Getenv(EnvProjectToken); token != "" {
		envOpts = append(envOpts, WithProjectToken(token))
	}
	// Explicit options go last so they can override the environment.
	return NewTracker(consumer, append(envOpts, opts...)...)
}

// FileConfig is the YAML configuration file schema understood by
// [NewTrackerFromConfigFile].
//
// Example file:
//
//	project_token: pt-1234
//	consumer:
//	  kind: log
//	  path: /var/log/app/events.log
//	  rotate_daily: true
//	  batch_size: 100
//	  flush_interval: 5s
//	store:
//	  kind: sqlite
//	  path: /var/lib/app/profiles.db
type FileConfig struct {
	ProjectToken string `yaml:"project_token"`

	Consumer struct {
		// Kind selects the consumer: "log" (default) or "debug".
		Kind string `yaml:"kind"`
		// Path is the log file path. Required for kind "log".
		Path string `yaml:"path"`
		// RotateDaily enables daily log rotation.
		RotateDaily bool `yaml:"rotate_daily"`
		// BatchSize wraps the consumer in a BatchConsumer when > 0.
		BatchSize int `yaml:"batch_size"`
		// FlushInterval is a Go duration string for the background
		// flusher, e.g. "5s". Only used with a batch size.
		FlushInterval string `yaml:"flush_interval"`
	} `yaml:"consumer"`

	Store struct {
		// Kind selects the profile store: "memory" (default) or "sqlite".
		Kind string `yaml:"kind"`
		// Path is the database file path. Required for kind "sqlite".
		Path string `yaml:"path"`
	} `yaml:"store"`
}

// LoadConfigFile reads and parses a YAML configuration file.
func LoadConfigFile(path string) (*FileConfig, error) {
	if err := ValidateRequired("path", path); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(err, "read config file")
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, WrapError(err, "parse config file")
	}
	return &cfg, nil
}

// NewTrackerFromConfigFile builds a tracker, its consumer chain, and its
// profile store from a YAML configuration file. Explicit options override
// file settings.
func NewTrackerFromConfigFile(path string, opts ...Option) (*Tracker, error) {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}

	consumer, err := buildConsumer(cfg)
	if err != nil {
		return nil, err
	}

	fileOpts := make([]Option, 0, 2)
	if cfg.ProjectToken != "" {
		fileOpts = append(fileOpts, WithProjectToken(cfg.ProjectToken))
	}
	switch cfg.Store.Kind {
	case "", "memory":
		// Default store.
	case "sqlite":
		store, err := NewSQLiteProfileStore(cfg.Store.Path)
		if err != nil {
			consumer.Close()
			return nil, err
		}
		fileOpts = append(fileOpts, WithProfileStore(store))
	default:
		consumer.Close()
		return nil, NewValidationError("store.kind",
			fmt.Sprintf("unknown store kind %q", cfg.Store.Kind))
	}

	tracker, err := NewTracker(consumer, append(fileOpts, opts...)...)
	if err != nil {
		consumer.Close()
		return nil, err
	}
	return tracker, nil
}

// buildConsumer assembles the consumer chain described by cfg.
func buildConsumer(cfg *FileConfig) (Consumer, error) {
	var base Consumer
	switch cfg.Consumer.Kind {
	case "", "log":
		var logOpts []LogConsumerOption
		if cfg.Consumer.RotateDaily {
			logOpts = append(logOpts, WithDailyRotation())
		}
		consumer, err := NewLogConsumer(cfg.Consumer.Path, logOpts...)
		if err != nil {
			return nil, err
		}
		base = consumer
	case "debug":
		consumer, err := NewDebugConsumer(os.Stderr)
		if err != nil {
			return nil, err
		}
		base = consumer
	default:
		return nil, NewValidationError("consumer.kind",
			fmt.Sprintf("unknown consumer kind %q", cfg.Consumer.Kind))
	}

	if cfg.Consumer.BatchSize <= 0 {
		return base, nil
	}

	batchOpts := []BatchOption{WithBatchSize(cfg.Consumer.BatchSize)}
	if cfg.Consumer.FlushInterval != "" {
		interval, err := time.ParseDuration(cfg.Consumer.FlushInterval)
		if err != nil {
			base.Close()
			return nil, NewValidationErrorWithCause("consumer.flush_interval",
				"must be a valid duration", err)
		}
		batchOpts = append(batchOpts, WithBatchFlushInterval(interval))
	}
	return NewBatchConsumer(base, batchOpts...)
}
