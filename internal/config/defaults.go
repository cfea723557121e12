package config

import "time"

const defaultDebounce = 300 * time.Millisecond

// SystemDefaults returns the built-in configuration.
func SystemDefaults() *Config {
	enabled := true
	return &Config{
		Output: OutputConfig{Format: "auto"},
		Exclude: []string{
			".git",
			".venv",
			"venv",
			"node_modules",
			"__pycache__",
		},
		Cache: CacheConfig{
			Enabled: &enabled,
			Dir:     ".routable/cache",
		},
		Store: StoreConfig{
			Backend: "file",
			Dir:     ".routable/results",
		},
		Gate:  GateConfig{RegoDir: ".routable/rego"},
		Watch: WatchConfig{Debounce: defaultDebounce.String()},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			Endpoint:    "localhost:4317",
			ServiceName: "routable-lint",
			SampleRate:  1.0,
		},
	}
}
