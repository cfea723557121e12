package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("duration", validateDuration)
	_ = validate.RegisterValidation("glob", validateGlob)
}

func validateDuration(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	d, err := time.ParseDuration(s)
	return err == nil && d >= 0
}

func validateGlob(fl validator.FieldLevel) bool {
	_, err := filepath.Match(fl.Field().String(), "")
	return err == nil
}

// Config holds the full routable-lint configuration.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Exclude   []string        `yaml:"exclude" validate:"dive,required,glob"`
	Jobs      int             `yaml:"jobs" validate:"gte=0,lte=256"`
	Cache     CacheConfig     `yaml:"cache"`
	Store     StoreConfig     `yaml:"store"`
	Gate      GateConfig      `yaml:"gate"`
	Watch     WatchConfig     `yaml:"watch"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// OutputConfig selects how results are printed.
type OutputConfig struct {
	Format string `yaml:"format" validate:"omitempty,oneof=auto text json sarif pretty markdown"`
}

// CacheConfig controls the on-disk findings cache. Enabled is a pointer so a
// higher tier can switch the cache off.
type CacheConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	RemoteURL string `yaml:"remote_url" validate:"omitempty,url"`
}

// IsEnabled reports whether the cache is on. Unset means on.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// StoreConfig selects where check results are persisted.
type StoreConfig struct {
	Backend string `yaml:"backend" validate:"omitempty,oneof=file sqlite"`
	Dir     string `yaml:"dir"`
}

// GateConfig points at the directory holding custom Rego gate policies.
type GateConfig struct {
	RegoDir string `yaml:"rego_dir"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce" validate:"duration"`
}

// DebounceDuration parses Debounce, falling back to the system default.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil {
		return defaultDebounce
	}
	return d
}

// TelemetryConfig configures OTLP export of traces and metrics.
type TelemetryConfig struct {
	Enabled        bool              `yaml:"enabled"`
	Endpoint       string            `yaml:"endpoint" validate:"required_if=Enabled true"`
	Protocol       string            `yaml:"protocol" validate:"omitempty,oneof=grpc http"`
	Insecure       bool              `yaml:"insecure"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	ServiceName    string            `yaml:"service_name"`
	ServiceVersion string            `yaml:"service_version"`
	SampleRate     float64           `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Validate checks that the configuration is valid and ready to use
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// MergeConfigs merges configs in order of increasing precedence.
// Later configs override earlier ones. Non-zero fields override; Exclude
// and Headers from a higher tier replace the lower tier's list or map.
func MergeConfigs(configs ...*Config) *Config {
	result := &Config{}

	for _, cfg := range configs {
		if cfg == nil {
			continue
		}

		if cfg.Output.Format != "" {
			result.Output.Format = cfg.Output.Format
		}
		if len(cfg.Exclude) > 0 {
			result.Exclude = append([]string(nil), cfg.Exclude...)
		}
		if cfg.Jobs != 0 {
			result.Jobs = cfg.Jobs
		}

		if cfg.Cache.Enabled != nil {
			enabled := *cfg.Cache.Enabled
			result.Cache.Enabled = &enabled
		}
		if cfg.Cache.Dir != "" {
			result.Cache.Dir = cfg.Cache.Dir
		}
		if cfg.Cache.RemoteURL != "" {
			result.Cache.RemoteURL = cfg.Cache.RemoteURL
		}

		if cfg.Store.Backend != "" {
			result.Store.Backend = cfg.Store.Backend
		}
		if cfg.Store.Dir != "" {
			result.Store.Dir = cfg.Store.Dir
		}

		if cfg.Gate.RegoDir != "" {
			result.Gate.RegoDir = cfg.Gate.RegoDir
		}

		if cfg.Watch.Debounce != "" {
			result.Watch.Debounce = cfg.Watch.Debounce
		}

		// Telemetry: enabling at any tier sticks; the environment variable is
		// the way to switch it back off.
		t := cfg.Telemetry
		if t.Enabled {
			result.Telemetry.Enabled = true
		}
		if t.Endpoint != "" {
			result.Telemetry.Endpoint = t.Endpoint
		}
		if t.Protocol != "" {
			result.Telemetry.Protocol = t.Protocol
		}
		if t.Insecure {
			result.Telemetry.Insecure = true
		}
		if len(t.Headers) > 0 {
			result.Telemetry.Headers = make(map[string]string, len(t.Headers))
			for k, v := range t.Headers {
				result.Telemetry.Headers[k] = v
			}
		}
		if t.ServiceName != "" {
			result.Telemetry.ServiceName = t.ServiceName
		}
		if t.ServiceVersion != "" {
			result.Telemetry.ServiceVersion = t.ServiceVersion
		}
		if t.SampleRate != 0 {
			result.Telemetry.SampleRate = t.SampleRate
		}
	}

	return result
}

// LoadFromFile reads a YAML config file. Returns nil, nil if the file doesn't exist.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadTiered loads system defaults, then machine config, then project config,
// merges them in order of increasing precedence and validates the result.
func LoadTiered(machinePath, projectPath string) (*Config, error) {
	system := SystemDefaults()

	machine, err := LoadFromFile(machinePath)
	if err != nil {
		return nil, fmt.Errorf("loading machine config: %w", err)
	}

	project, err := LoadFromFile(projectPath)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := MergeConfigs(system, machine, project)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
