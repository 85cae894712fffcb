package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
)

// DefaultBaseTemperature is applied when a sensor omits its base temperature
const DefaultBaseTemperature = 65.0

// SensorConfig configures one degree-day instance. Each configured sensor is
// fully independent of the others. Optional fields are pointers so an omitted
// value is distinguishable from an explicit zero or false; Validate fills in
// the defaults, since cleanenv does not apply tag defaults inside slice
// elements.
type SensorConfig struct {
	Name            string   `yaml:"name"`
	EntityID        string   `yaml:"entityId"`
	BaseTemperature *float64 `yaml:"baseTemperature"`
	TemperatureUnit string   `yaml:"temperatureUnit"`
	IncludeCooling  bool     `yaml:"includeCooling"`
	IncludeWeekly   *bool    `yaml:"includeWeekly"`
	IncludeMonthly  *bool    `yaml:"includeMonthly"`
}

// Title returns the display name of the instance
func (s *SensorConfig) Title() string {
	if s.IncludeCooling {
		return "Heating & Cooling Degree Days"
	}
	return "Heating Degree Days"
}

// Config holds all configuration for the degree-days service
type Config struct {
	// History store (Home Assistant) access
	HistoryURL            string  `yaml:"historyUrl" env:"HISTORY_URL" env-required:"true"`
	HistoryToken          string  `yaml:"historyToken" env:"HISTORY_TOKEN"`
	HistoryTimeoutSeconds float64 `yaml:"historyTimeoutSeconds" env:"HISTORY_TIMEOUT_SECONDS" env-default:"30"`

	// Update cycle scheduling
	UpdateIntervalSeconds int `yaml:"updateIntervalSeconds" env:"UPDATE_INTERVAL_SECONDS" env-default:"300"`
	RetentionDays         int `yaml:"retentionDays" env:"RETENTION_DAYS" env-default:"60"`

	// Configured sensor instances
	Sensors []SensorConfig `yaml:"sensors"`

	// Prometheus remote write; disabled when the URL is empty
	PrometheusURL       string `yaml:"prometheusUrl" env:"PROMETHEUS_URL"`
	PrometheusUsername  string `yaml:"prometheusUsername" env:"PROMETHEUS_USERNAME"`
	PrometheusPassword  string `yaml:"prometheusPassword" env:"PROMETHEUS_PASSWORD"`
	PushIntervalSeconds int    `yaml:"pushIntervalSeconds" env:"PUSH_INTERVAL_SECONDS" env-default:"60"`
	BufferSize          int    `yaml:"bufferSize" env:"BUFFER_SIZE" env-default:"1000"`

	// Status HTTP server
	StatusPort int `yaml:"statusPort" env:"STATUS_PORT" env-default:"8080"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`

	// OpenTelemetry configuration
	OpenTelemetry OpenTelemetryConfig `yaml:"opentelemetry"`

	// Profiling configuration
	Profiling ProfilingConfig `yaml:"profiling"`
}

// Load reads configuration from the given file and applies environment
// variable overrides
func Load(configPath string) (*Config, error) {
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all configuration parameters are valid
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.HistoryURL); err != nil {
		return fmt.Errorf("invalid historyUrl: %w", err)
	}

	if c.HistoryTimeoutSeconds <= 0 {
		return fmt.Errorf("historyTimeoutSeconds must be positive, got %f", c.HistoryTimeoutSeconds)
	}

	if c.UpdateIntervalSeconds <= 0 {
		return fmt.Errorf("updateIntervalSeconds must be positive, got %d", c.UpdateIntervalSeconds)
	}

	// The retention horizon must cover any calendar month so monthly sums
	// are unaffected by purging
	if c.RetentionDays < 31 {
		return fmt.Errorf("retentionDays must be at least 31, got %d", c.RetentionDays)
	}

	if len(c.Sensors) == 0 {
		return fmt.Errorf("at least one sensor must be configured")
	}

	names := make(map[string]bool, len(c.Sensors))
	for i := range c.Sensors {
		if err := c.Sensors[i].validate(); err != nil {
			return fmt.Errorf("sensor %d: %w", i, err)
		}
		if names[c.Sensors[i].Name] {
			return fmt.Errorf("duplicate sensor name %q", c.Sensors[i].Name)
		}
		names[c.Sensors[i].Name] = true
	}

	if c.PrometheusURL != "" {
		if _, err := url.ParseRequestURI(c.PrometheusURL); err != nil {
			return fmt.Errorf("invalid prometheusUrl: %w", err)
		}
		if c.PushIntervalSeconds <= 0 {
			return fmt.Errorf("pushIntervalSeconds must be positive, got %d", c.PushIntervalSeconds)
		}
		if c.BufferSize <= 0 {
			return fmt.Errorf("bufferSize must be positive, got %d", c.BufferSize)
		}
	}

	if c.StatusPort <= 0 || c.StatusPort > 65535 {
		return fmt.Errorf("statusPort must be between 1 and 65535, got %d", c.StatusPort)
	}

	if err := ValidateLogging(&c.Logging); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}

	if err := ValidateOpenTelemetry(&c.OpenTelemetry); err != nil {
		return fmt.Errorf("opentelemetry validation failed: %w", err)
	}

	if err := ValidateProfiling(&c.Profiling); err != nil {
		return fmt.Errorf("profiling validation failed: %w", err)
	}

	return nil
}

func (s *SensorConfig) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if !strings.Contains(s.EntityID, ".") {
		return fmt.Errorf("invalid entityId %q: expected <domain>.<object_id>", s.EntityID)
	}

	if s.TemperatureUnit == "" {
		s.TemperatureUnit = "celsius"
	}
	s.TemperatureUnit = strings.ToLower(s.TemperatureUnit)
	if s.TemperatureUnit != "celsius" && s.TemperatureUnit != "fahrenheit" {
		return fmt.Errorf("temperatureUnit must be 'celsius' or 'fahrenheit', got %q", s.TemperatureUnit)
	}

	// An explicit 0 is a legitimate base temperature; only a missing value
	// gets the default
	if s.BaseTemperature == nil {
		base := DefaultBaseTemperature
		s.BaseTemperature = &base
	}
	if s.IncludeWeekly == nil {
		weekly := true
		s.IncludeWeekly = &weekly
	}
	if s.IncludeMonthly == nil {
		monthly := true
		s.IncludeMonthly = &monthly
	}

	return nil
}

// Redacted returns a copy of the config with sensitive fields redacted for logging
func (c *Config) Redacted() map[string]interface{} {
	sensors := make([]map[string]interface{}, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		sensors = append(sensors, map[string]interface{}{
			"name":            s.Name,
			"entityId":        s.EntityID,
			"baseTemperature": *s.BaseTemperature,
			"temperatureUnit": s.TemperatureUnit,
			"includeCooling":  s.IncludeCooling,
			"includeWeekly":   *s.IncludeWeekly,
			"includeMonthly":  *s.IncludeMonthly,
		})
	}

	return map[string]interface{}{
		"historyUrl":            c.HistoryURL,
		"historyTokenSet":       c.HistoryToken != "",
		"historyTimeoutSeconds": c.HistoryTimeoutSeconds,
		"updateIntervalSeconds": c.UpdateIntervalSeconds,
		"retentionDays":         c.RetentionDays,
		"sensors":               sensors,
		"prometheusUrl":         redactURL(c.PrometheusURL),
		"prometheusUsername":    c.PrometheusUsername,
		"prometheusPassword":    "***",
		"pushIntervalSeconds":   c.PushIntervalSeconds,
		"bufferSize":            c.BufferSize,
		"statusPort":            c.StatusPort,
		"logging": map[string]interface{}{
			"logFormat": c.Logging.Format,
			"logLevel":  c.Logging.Level,
		},
		"opentelemetry": map[string]interface{}{
			"enabled":     c.OpenTelemetry.Enabled,
			"serviceName": c.OpenTelemetry.ServiceName,
			"environment": c.OpenTelemetry.Environment,
		},
		"profiling": map[string]interface{}{
			"enabled": c.Profiling.Enabled,
		},
	}
}

// NewLogger creates a zap logger based on the configuration
func (c *Config) NewLogger() (*zap.Logger, error) {
	return NewLogger(&c.Logging)
}

// PushEnabled reports whether Prometheus remote write is configured
func (c *Config) PushEnabled() bool {
	return c.PrometheusURL != ""
}

// redactURL removes credentials from URLs for logging
func redactURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword("***", "***")
	}
	return u.String()
}
