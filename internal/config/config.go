// Package config handles configuration loading, validation, and
// hot-reloading for proctord.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"proctord/internal/countdown"
	"proctord/internal/detector"
	"proctord/internal/logging"
	"proctord/internal/policy"
)

// Config holds the complete agent configuration.
type Config struct {
	// Server configures the backend the agent reports to.
	Server ServerConfig `toml:"server"`

	// Monitor configures the activity monitor.
	Monitor MonitorConfig `toml:"monitor"`

	// Detector configures the DevTools and extension probes.
	Detector DetectorConfig `toml:"detector"`

	// Timer configures per-category question budgets.
	Timer TimerConfig `toml:"timer"`

	// Policy configures the warning budget.
	Policy PolicyConfig `toml:"policy"`

	// Storage configures session-state persistence.
	Storage StorageConfig `toml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig holds backend endpoint settings.
type ServerConfig struct {
	// BaseURL is the backend root, e.g. "https://api.example.com".
	BaseURL string `toml:"base_url"`

	// TimeoutSec bounds each backend request.
	TimeoutSec int `toml:"timeout_sec"`
}

// MonitorConfig holds activity monitor settings.
type MonitorConfig struct {
	Enabled bool `toml:"enabled"`
}

// DetectorConfig holds probe settings.
type DetectorConfig struct {
	Enabled bool `toml:"enabled"`

	// IntervalSec is the sweep cadence in seconds.
	IntervalSec int `toml:"interval_sec"`

	// WindowDeltaPx is the outer/inner window difference above which a
	// docked DevTools panel is assumed.
	WindowDeltaPx int `toml:"window_delta_px"`

	// ConsoleTimingMs is the console probe duration threshold.
	ConsoleTimingMs int `toml:"console_timing_ms"`

	// ExtensionProbes toggles the extension fingerprint sweep.
	ExtensionProbes bool `toml:"extension_probes"`
}

// TimerConfig holds countdown budgets.
type TimerConfig struct {
	TechnicalMinutes  int `toml:"technical_minutes"`
	LiveCodingMinutes int `toml:"live_coding_minutes"`

	// StagePlanPath optionally points at a YAML stage plan that
	// overrides the budgets above.
	StagePlanPath string `toml:"stage_plan_path"`
}

// PolicyConfig holds the warning budget.
type PolicyConfig struct {
	// MaxWarnings is how many tab-hide violations warn before the next
	// one terminates.
	MaxWarnings int `toml:"max_warnings"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Type is the storage backend type: "sqlite" or "memory".
	Type string `toml:"type"`

	// Path is the database file path (for sqlite).
	Path string `toml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`

	// Output is "stdout", "stderr", or "file".
	Output string `toml:"output"`

	// FilePath is the log file path when Output is "file".
	FilePath string `toml:"file_path"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:    "http://localhost:8080",
			TimeoutSec: 10,
		},
		Monitor: MonitorConfig{
			Enabled: true,
		},
		Detector: DetectorConfig{
			Enabled:         true,
			IntervalSec:     int(detector.DefaultInterval.Seconds()),
			WindowDeltaPx:   detector.DefaultWindowDelta,
			ConsoleTimingMs: int(detector.DefaultConsoleTiming.Milliseconds()),
			ExtensionProbes: true,
		},
		Timer: TimerConfig{
			TechnicalMinutes:  countdown.DefaultTechnicalMinutes,
			LiveCodingMinutes: countdown.DefaultLiveCodingMinutes,
		},
		Policy: PolicyConfig{
			MaxWarnings: policy.DefaultMaxWarnings,
		},
		Storage: StorageConfig{
			Type: "sqlite",
			Path: defaultStatePath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "proctord.db"
	}
	return dir + "/proctord/state.db"
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.BaseURL == "" {
		errs = append(errs, errors.New("server.base_url is required"))
	}
	if c.Server.TimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("server.timeout_sec must be positive, got %d", c.Server.TimeoutSec))
	}

	if c.Detector.IntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("detector.interval_sec must be positive, got %d", c.Detector.IntervalSec))
	}
	if c.Detector.WindowDeltaPx <= 0 {
		errs = append(errs, fmt.Errorf("detector.window_delta_px must be positive, got %d", c.Detector.WindowDeltaPx))
	}
	if c.Detector.ConsoleTimingMs <= 0 {
		errs = append(errs, fmt.Errorf("detector.console_timing_ms must be positive, got %d", c.Detector.ConsoleTimingMs))
	}

	if c.Timer.TechnicalMinutes <= 0 {
		errs = append(errs, fmt.Errorf("timer.technical_minutes must be positive, got %d", c.Timer.TechnicalMinutes))
	}
	if c.Timer.LiveCodingMinutes <= 0 {
		errs = append(errs, fmt.Errorf("timer.live_coding_minutes must be positive, got %d", c.Timer.LiveCodingMinutes))
	}

	if c.Policy.MaxWarnings <= 0 {
		errs = append(errs, fmt.Errorf("policy.max_warnings must be positive, got %d", c.Policy.MaxWarnings))
	}

	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for sqlite"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.type must be %q or %q, got %q", "sqlite", "memory", c.Storage.Type))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be %q or %q, got %q", "text", "json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// LoadFile reads a TOML configuration file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
