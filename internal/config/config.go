package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "bckey/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Machine   MachineConfig   `yaml:"machine" envconfig:"MACHINE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_if=Output file,required_if=Output both"`
}

// LicenseConfig contains license decoder configuration
type LicenseConfig struct {
	// RateLimitRPS caps decode attempts per second; 0 disables the limit.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gte=0"`
	// Workers bounds concurrent decodes in batch mode.
	Workers int `yaml:"workers" envconfig:"WORKERS" validate:"gte=1,lte=256"`
}

// MachineConfig contains machine fingerprint configuration
type MachineConfig struct {
	PreferredPrefixes []string `yaml:"preferred_prefixes" envconfig:"PREFERRED_PREFIXES" validate:"dive,ifprefix"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	MetricsAddr    string  `yaml:"metrics_addr" envconfig:"METRICS_ADDR" validate:"omitempty,hostname_port"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to load config from %s", configFile), err)
		}
	}

	// envconfig only overwrites fields whose variables are set.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// getConfigFilePath returns the path to the config file, or "" if none exists
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	for _, location := range ConfigFileLocations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Output = strings.ToLower(strings.TrimSpace(c.Logging.Output))

	prefixes := c.Machine.PreferredPrefixes[:0]
	for _, p := range c.Machine.PreferredPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	c.Machine.PreferredPrefixes = prefixes
}

// Validate checks every section and reports all failing fields at once.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewConfigError("config validation failed", err)
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, formatValidationError(fe))
	}
	return apperrors.NewConfigError("invalid configuration: "+strings.Join(fields, "; "), nil).
		WithContext("fields", fields)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("ifprefix", validateInterfacePrefix)
	return v
}

// validateInterfacePrefix accepts interface name prefixes: short, printable,
// no whitespace or path separators.
func validateInterfacePrefix(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) >= MaxInterfaceNameLen {
		return false
	}
	for _, r := range s {
		if r <= ' ' || r > '~' || r == '/' || r == ':' {
			return false
		}
	}
	return true
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, fe.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", field, fe.Value())
	case "ifprefix":
		return fmt.Sprintf("%s is not a valid interface name prefix: %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/bckey.log",
		},
		License: LicenseConfig{
			RateLimitRPS:   0,
			RateLimitBurst: DefaultRateLimitBurst,
			Workers:        DefaultWorkers,
		},
		Machine: MachineConfig{
			PreferredPrefixes: append([]string(nil), DefaultPreferredPrefixes...),
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			SampleRatio:    1.0,
			Environment:    "development",
		},
	}
}
