// Package config provides configuration management for the orchestration service.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for the orchestration service.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Docker       DockerConfig       `mapstructure:"docker"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Triggers     TriggersConfig     `mapstructure:"triggers"`
	Monitors     MonitorsConfig     `mapstructure:"monitors"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// DatabaseConfig holds the connection settings for the platform database the
// infrastructure monitor probes. Empty host disables the probe.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
	SSLMode  string `mapstructure:"sslMode"`
	MaxConns int    `mapstructure:"maxConns"`
	MinConns int    `mapstructure:"minConns"`
}

// NATSConfig holds NATS messaging configuration.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// DockerConfig holds Docker client configuration for the infrastructure probe.
type DockerConfig struct {
	// Enabled controls whether the infrastructure monitor pings the Docker
	// daemon. When the daemon is unreachable the probe degrades gracefully.
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	APIVersion string `mapstructure:"apiVersion"`
}

// OrchestratorConfig holds the control-loop cadence settings.
type OrchestratorConfig struct {
	StatusCheckInterval int    `mapstructure:"statusCheckInterval"` // in seconds
	ReportingInterval   int    `mapstructure:"reportingInterval"`   // in seconds
	CheckTimeout        int    `mapstructure:"checkTimeout"`        // in seconds, per monitor check
	PlanPath            string `mapstructure:"planPath"`            // optional YAML development plan
}

// TriggersConfig holds the automation-rule tuning knobs.
type TriggersConfig struct {
	MaxAutoResolutionAttempts int `mapstructure:"maxAutoResolutionAttempts"`
	EscalationAge             int `mapstructure:"escalationAge"` // in seconds
}

// MonitorsConfig holds settings shared by all monitors plus per-domain probe targets.
type MonitorsConfig struct {
	ProgressStep     float64                  `mapstructure:"progressStep"`     // percent per healthy check
	FailureThreshold int                      `mapstructure:"failureThreshold"` // consecutive unhealthy checks before a task fails
	QueueCapacity    int                      `mapstructure:"queueCapacity"`
	ProbeTimeout     int                      `mapstructure:"probeTimeout"` // in seconds
	Backend          BackendMonitorConfig     `mapstructure:"backend"`
	Frontend         FrontendMonitorConfig    `mapstructure:"frontend"`
	AIML             AIMLMonitorConfig        `mapstructure:"aiml"`
	Integration      IntegrationMonitorConfig `mapstructure:"integration"`
	Testing          TestingMonitorConfig     `mapstructure:"testing"`
}

// BackendMonitorConfig points the backend monitor at the API health endpoint.
type BackendMonitorConfig struct {
	HealthURL string `mapstructure:"healthUrl"`
}

// FrontendMonitorConfig points the frontend monitor at the web app and its
// dev-server HMR websocket.
type FrontendMonitorConfig struct {
	BaseURL string `mapstructure:"baseUrl"`
	HMRURL  string `mapstructure:"hmrUrl"`
}

// AIMLMonitorConfig points the AI/ML monitor at the model-serving endpoint.
type AIMLMonitorConfig struct {
	InferenceURL     string `mapstructure:"inferenceUrl"`
	LatencyThreshold int    `mapstructure:"latencyThreshold"` // in milliseconds
}

// IntegrationMonitorConfig points the integration monitor at the partner webhook endpoint.
type IntegrationMonitorConfig struct {
	WebhookURL string `mapstructure:"webhookUrl"`
}

// TestingMonitorConfig points the testing monitor at the latest test-run summary.
type TestingMonitorConfig struct {
	ResultsPath string `mapstructure:"resultsPath"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// StatusCheckIntervalDuration returns the fast-sweep interval as a time.Duration.
func (o *OrchestratorConfig) StatusCheckIntervalDuration() time.Duration {
	return time.Duration(o.StatusCheckInterval) * time.Second
}

// ReportingIntervalDuration returns the report-cycle interval as a time.Duration.
func (o *OrchestratorConfig) ReportingIntervalDuration() time.Duration {
	return time.Duration(o.ReportingInterval) * time.Second
}

// CheckTimeoutDuration returns the per-check timeout as a time.Duration.
func (o *OrchestratorConfig) CheckTimeoutDuration() time.Duration {
	return time.Duration(o.CheckTimeout) * time.Second
}

// EscalationAgeDuration returns the blocker escalation age as a time.Duration.
func (t *TriggersConfig) EscalationAgeDuration() time.Duration {
	return time.Duration(t.EscalationAge) * time.Second
}

// ProbeTimeoutDuration returns the probe timeout as a time.Duration.
func (m *MonitorsConfig) ProbeTimeoutDuration() time.Duration {
	return time.Duration(m.ProbeTimeout) * time.Second
}

// LatencyThresholdDuration returns the inference latency threshold as a time.Duration.
func (a *AIMLMonitorConfig) LatencyThresholdDuration() time.Duration {
	return time.Duration(a.LatencyThreshold) * time.Millisecond
}

// detectDefaultLogFormat returns the appropriate log format based on environment.
// Returns "json" if running in Kubernetes or other production environments.
// Returns "text" for terminal/development use (human-readable console format).
func detectDefaultLogFormat() string {
	// Check if running in Kubernetes
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}

	// Check for explicit production environment
	if env := os.Getenv("CASTINGAI_ENV"); env == "production" || env == "prod" {
		return "json"
	}

	// Default to text format for terminal use (more readable than JSON)
	return "text"
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database defaults - empty host means the infrastructure probe skips the database
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "castingai")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbName", "castingai")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.minConns", 2)

	// NATS defaults - empty URL means use in-memory event bus
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "castingai-orchestrator")
	v.SetDefault("nats.maxReconnects", 10)

	// Docker defaults
	v.SetDefault("docker.enabled", true)
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.apiVersion", "")

	// Orchestrator defaults
	v.SetDefault("orchestrator.statusCheckInterval", 900)
	v.SetDefault("orchestrator.reportingInterval", 1800)
	v.SetDefault("orchestrator.checkTimeout", 30)
	v.SetDefault("orchestrator.planPath", "")

	// Trigger defaults
	v.SetDefault("triggers.maxAutoResolutionAttempts", 3)
	v.SetDefault("triggers.escalationAge", 1800)

	// Monitor defaults - probe URLs default to empty (tracking-only mode)
	v.SetDefault("monitors.progressStep", 25.0)
	v.SetDefault("monitors.failureThreshold", 3)
	v.SetDefault("monitors.queueCapacity", 64)
	v.SetDefault("monitors.probeTimeout", 5)
	v.SetDefault("monitors.backend.healthUrl", "")
	v.SetDefault("monitors.frontend.baseUrl", "")
	v.SetDefault("monitors.frontend.hmrUrl", "")
	v.SetDefault("monitors.aiml.inferenceUrl", "")
	v.SetDefault("monitors.aiml.latencyThreshold", 2000)
	v.SetDefault("monitors.integration.webhookUrl", "")
	v.SetDefault("monitors.testing.resultsPath", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix CASTINGAI_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory or /etc/castingai/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults first
	setDefaults(v)

	// Configure environment variables
	v.SetEnvPrefix("CASTINGAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for snake_case env vars (camelCase config keys)
	// AutomaticEnv does not handle camelCase to SNAKE_CASE conversion,
	// so we explicitly bind keys where env var naming differs from config key naming.
	_ = v.BindEnv("server.readTimeout", "CASTINGAI_SERVER_READ_TIMEOUT")
	_ = v.BindEnv("server.writeTimeout", "CASTINGAI_SERVER_WRITE_TIMEOUT")
	_ = v.BindEnv("database.dbName", "CASTINGAI_DATABASE_DB_NAME")
	_ = v.BindEnv("database.sslMode", "CASTINGAI_DATABASE_SSL_MODE")
	_ = v.BindEnv("database.maxConns", "CASTINGAI_DATABASE_MAX_CONNS")
	_ = v.BindEnv("database.minConns", "CASTINGAI_DATABASE_MIN_CONNS")
	_ = v.BindEnv("nats.clientId", "CASTINGAI_NATS_CLIENT_ID")
	_ = v.BindEnv("nats.maxReconnects", "CASTINGAI_NATS_MAX_RECONNECTS")
	_ = v.BindEnv("docker.apiVersion", "CASTINGAI_DOCKER_API_VERSION")
	_ = v.BindEnv("orchestrator.statusCheckInterval", "CASTINGAI_ORCHESTRATOR_STATUS_CHECK_INTERVAL")
	_ = v.BindEnv("orchestrator.reportingInterval", "CASTINGAI_ORCHESTRATOR_REPORTING_INTERVAL")
	_ = v.BindEnv("orchestrator.checkTimeout", "CASTINGAI_ORCHESTRATOR_CHECK_TIMEOUT")
	_ = v.BindEnv("orchestrator.planPath", "CASTINGAI_ORCHESTRATOR_PLAN_PATH")
	_ = v.BindEnv("triggers.maxAutoResolutionAttempts", "CASTINGAI_TRIGGERS_MAX_AUTO_RESOLUTION_ATTEMPTS")
	_ = v.BindEnv("triggers.escalationAge", "CASTINGAI_TRIGGERS_ESCALATION_AGE")
	_ = v.BindEnv("monitors.progressStep", "CASTINGAI_MONITORS_PROGRESS_STEP")
	_ = v.BindEnv("monitors.failureThreshold", "CASTINGAI_MONITORS_FAILURE_THRESHOLD")
	_ = v.BindEnv("monitors.queueCapacity", "CASTINGAI_MONITORS_QUEUE_CAPACITY")
	_ = v.BindEnv("monitors.probeTimeout", "CASTINGAI_MONITORS_PROBE_TIMEOUT")
	_ = v.BindEnv("monitors.backend.healthUrl", "CASTINGAI_MONITORS_BACKEND_HEALTH_URL")
	_ = v.BindEnv("monitors.frontend.baseUrl", "CASTINGAI_MONITORS_FRONTEND_BASE_URL")
	_ = v.BindEnv("monitors.frontend.hmrUrl", "CASTINGAI_MONITORS_FRONTEND_HMR_URL")
	_ = v.BindEnv("monitors.aiml.inferenceUrl", "CASTINGAI_MONITORS_AIML_INFERENCE_URL")
	_ = v.BindEnv("monitors.aiml.latencyThreshold", "CASTINGAI_MONITORS_AIML_LATENCY_THRESHOLD")
	_ = v.BindEnv("monitors.integration.webhookUrl", "CASTINGAI_MONITORS_INTEGRATION_WEBHOOK_URL")
	_ = v.BindEnv("monitors.testing.resultsPath", "CASTINGAI_MONITORS_TESTING_RESULTS_PATH")
	_ = v.BindEnv("logging.outputPath", "CASTINGAI_LOGGING_OUTPUT_PATH")

	// Configure config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/castingai/")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
// In development mode (default), most fields are optional.
func validate(cfg *Config) error {
	var errs []string

	// Server validation - always required
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	// Database validation - only if host is set (probe disabled otherwise)
	if cfg.Database.Host != "" {
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errs = append(errs, "database.port must be between 1 and 65535")
		}
		if cfg.Database.User == "" {
			errs = append(errs, "database.user is required when database.host is set")
		}
		if cfg.Database.DBName == "" {
			errs = append(errs, "database.dbName is required when database.host is set")
		}
	}

	// NATS validation - optional (uses in-memory event bus if not set)
	// Docker validation - optional (infrastructure probe degrades gracefully)

	// Orchestrator validation
	if cfg.Orchestrator.StatusCheckInterval < 1 {
		errs = append(errs, "orchestrator.statusCheckInterval must be at least 1 second")
	}
	if cfg.Orchestrator.ReportingInterval < 1 {
		errs = append(errs, "orchestrator.reportingInterval must be at least 1 second")
	}
	if cfg.Orchestrator.CheckTimeout < 1 {
		errs = append(errs, "orchestrator.checkTimeout must be at least 1 second")
	}
	if cfg.Orchestrator.CheckTimeout >= cfg.Orchestrator.StatusCheckInterval {
		errs = append(errs, "orchestrator.checkTimeout must be shorter than orchestrator.statusCheckInterval")
	}

	// Trigger validation
	if cfg.Triggers.MaxAutoResolutionAttempts < 1 {
		errs = append(errs, "triggers.maxAutoResolutionAttempts must be at least 1")
	}
	if cfg.Triggers.EscalationAge < 1 {
		errs = append(errs, "triggers.escalationAge must be at least 1 second")
	}

	// Monitor validation
	if cfg.Monitors.ProgressStep <= 0 || cfg.Monitors.ProgressStep > 100 {
		errs = append(errs, "monitors.progressStep must be in (0, 100]")
	}
	if cfg.Monitors.FailureThreshold < 1 {
		errs = append(errs, "monitors.failureThreshold must be at least 1")
	}
	if cfg.Monitors.QueueCapacity < 1 {
		errs = append(errs, "monitors.queueCapacity must be at least 1")
	}
	if cfg.Monitors.ProbeTimeout < 1 {
		errs = append(errs, "monitors.probeTimeout must be at least 1 second")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	// "console" is the zap name for the human-readable encoder; the logger
	// treats it as an alias of "text".
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text, console")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}
