// Package config loads and validates application configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Chatbot       ChatbotConfig       `yaml:"chatbot"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes the operational HTTP endpoint (health, metrics).
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// EngineConfig describes workflow engine settings.
type EngineConfig struct {
	// HistoryLimit bounds the in-memory execution history; the oldest
	// record is evicted first.
	HistoryLimit int `yaml:"history_limit"`
	// ExecTimeout bounds a single execution, including runs resumed
	// after a wait step.
	ExecTimeout time.Duration `yaml:"exec_timeout"`
	// DefinitionsFile optionally points to a YAML file of workflow
	// definitions registered at startup in addition to the built-ins.
	DefinitionsFile string `yaml:"definitions_file"`
}

// SchedulerConfig describes interval jobs and threshold alerting.
type SchedulerConfig struct {
	TickInterval time.Duration     `yaml:"tick_interval"`
	Jobs         []JobConfig       `yaml:"jobs"`
	Thresholds   []ThresholdConfig `yaml:"thresholds"`
}

// JobConfig declares one recurring workflow execution.
type JobConfig struct {
	WorkflowID string        `yaml:"workflow_id"`
	Interval   time.Duration `yaml:"interval"`
}

// ThresholdConfig declares one metric threshold rule.
type ThresholdConfig struct {
	Metric     string  `yaml:"metric"`
	Category   string  `yaml:"category"`
	Threshold  float64 `yaml:"threshold"`
	Severity   string  `yaml:"severity"`
	Title      string  `yaml:"title"`
	Message    string  `yaml:"message"`
	WorkflowID string  `yaml:"workflow_id"`
}

// ChatbotConfig describes conversation session settings.
type ChatbotConfig struct {
	Mirror MirrorConfig `yaml:"mirror"`
}

// MirrorConfig describes the durable session mirror.
type MirrorConfig struct {
	// Driver is "none" or "postgres".
	Driver string `yaml:"driver"`
	// DSNEnv names the environment variable holding the Postgres DSN,
	// so credentials stay out of config files.
	DSNEnv string `yaml:"dsn_env"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			HistoryLimit: 1000,
			ExecTimeout:  30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			TickInterval: 60 * time.Second,
		},
		Chatbot: ChatbotConfig{
			Mirror: MirrorConfig{
				Driver: "none",
				DSNEnv: "BARRIO_SESSION_DSN",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Engine.HistoryLimit < 1 {
		errs = append(errs, "engine.history_limit must be positive")
	}
	if c.Scheduler.TickInterval <= 0 {
		errs = append(errs, "scheduler.tick_interval must be positive")
	}
	switch c.Chatbot.Mirror.Driver {
	case "", "none", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("chatbot.mirror.driver %q is not supported (none, postgres)", c.Chatbot.Mirror.Driver))
	}
	for i, job := range c.Scheduler.Jobs {
		if job.WorkflowID == "" {
			errs = append(errs, fmt.Sprintf("scheduler.jobs[%d].workflow_id is required", i))
		}
		if job.Interval <= 0 {
			errs = append(errs, fmt.Sprintf("scheduler.jobs[%d].interval must be positive", i))
		}
	}
	for i, th := range c.Scheduler.Thresholds {
		if th.Metric == "" {
			errs = append(errs, fmt.Sprintf("scheduler.thresholds[%d].metric is required", i))
		}
		switch th.Severity {
		case "", "info", "warning", "critical", "emergency":
		default:
			errs = append(errs, fmt.Sprintf("scheduler.thresholds[%d].severity %q is not valid", i, th.Severity))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads BARRIO_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BARRIO_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BARRIO_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("BARRIO_MIRROR_DRIVER"); v != "" {
		cfg.Chatbot.Mirror.Driver = v
	}
	if v := os.Getenv("BARRIO_TRACING_ENABLED"); v != "" {
		cfg.Observability.Tracing.Enabled = v == "true" || v == "1"
	}
}
