package main

import (
	"fmt"

	"github.com/kbukum/parbuild/config"
	"github.com/kbukum/parbuild/observability"
	"github.com/kbukum/parbuild/process"
	"github.com/kbukum/parbuild/scheduler"
	"github.com/kbukum/parbuild/validation"
	"github.com/kbukum/parbuild/version"
)

const appName = "parbuild"

// Config is the parbuild configuration, loaded from cmd/parbuild/config.yml,
// ./parbuild.yml or ./config.yml and PARBUILD_* environment variables.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// GraphDirs are searched for {graph}.yaml definitions.
	GraphDirs []string `mapstructure:"graph_dirs"`
	// RunID overrides the generated run id; it must be a UUID.
	RunID     string           `mapstructure:"run_id"`
	Scheduler scheduler.Config `mapstructure:"scheduler"`
	Process   process.Config   `mapstructure:"process"`
	Tracing   TracingConfig    `mapstructure:"tracing"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
}

// TracingConfig enables span export over OTLP.
type TracingConfig struct {
	Enabled                    bool `mapstructure:"enabled"`
	observability.TracerConfig `mapstructure:",squash"`
}

// MetricsConfig enables metric export over OTLP.
type MetricsConfig struct {
	Enabled                   bool `mapstructure:"enabled"`
	observability.MeterConfig `mapstructure:",squash"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = appName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Scheduler.ApplyDefaults()

	if len(c.GraphDirs) == 0 {
		c.GraphDirs = []string{"."}
	}

	tracing := observability.DefaultTracerConfig(c.Name)
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = tracing.ServiceName
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = tracing.Endpoint
		c.Tracing.Insecure = tracing.Insecure
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = tracing.SampleRate
	}
	c.Tracing.ServiceVersion = c.Version
	c.Tracing.Environment = c.Environment

	metrics := observability.DefaultMeterConfig(c.Name)
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = metrics.ServiceName
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = metrics.Endpoint
		c.Metrics.Insecure = metrics.Insecure
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = metrics.Interval
	}
	c.Metrics.ServiceVersion = c.Version
	c.Metrics.Environment = c.Environment
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.New().OptionalUUID("run_id", c.RunID).Err(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("config.scheduler: %w", err)
	}
	if err := validation.Validate(&c.Process); err != nil {
		return fmt.Errorf("config.process: %w", err)
	}
	if err := validation.Validate(&c.Tracing.TracerConfig); err != nil {
		return fmt.Errorf("config.tracing: %w", err)
	}
	return nil
}

// loadConfig reads the configuration; an explicit path wins over the search.
func loadConfig(path string) (*Config, error) {
	var opts []config.LoaderOption
	opts = append(opts, config.WithEnvPrefix("PARBUILD"))
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}

	var cfg Config
	if err := config.LoadConfig(appName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
