// Package config loads learnemg settings.
//
// Precedence, lowest first: built-in defaults, ~/.config/learnemg/config.toml,
// environment variables, then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/"
	DefaultModel   = "gemini-2.0-flash"
)

// Config is the complete learnemg configuration.
type Config struct {
	Persona    string `toml:"persona"`
	ContentDir string `toml:"content_dir"`
	DataDir    string `toml:"data_dir"`
	LogLevel   string `toml:"log_level"`
	Theme      string `toml:"theme"` // "dark", "light" or empty to detect

	API       APIConfig       `toml:"api"`
	Companion CompanionConfig `toml:"companion"`

	// APIKey comes from GEMINI_API_KEY only; it is never written to disk
	// by this package.
	APIKey string `toml:"-"`
}

// APIConfig controls the Gemini client.
type APIConfig struct {
	BaseURL           string   `toml:"base_url"`
	Model             string   `toml:"model"`
	RequestTimeout    Duration `toml:"request_timeout"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
}

// CompanionConfig holds the companion's timings and limits.
type CompanionConfig struct {
	HistoryLimit      int      `toml:"history_limit"`
	IdleTimeout       Duration `toml:"idle_timeout"`
	SelectionDebounce Duration `toml:"selection_debounce"`
	SelectionMinLen   int      `toml:"selection_min_len"`
	RevealDelay       Duration `toml:"reveal_delay"`
	LoadingInterval   Duration `toml:"loading_interval"`
	ReflexDelay       Duration `toml:"reflex_delay"`
}

// Duration reads TOML strings such as "60s" or "300ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Persona:  "mentor",
		LogLevel: "info",
		API: APIConfig{
			BaseURL:           DefaultBaseURL,
			Model:             DefaultModel,
			RequestTimeout:    Duration{60 * time.Second},
			RequestsPerMinute: 15,
		},
		Companion: CompanionConfig{
			HistoryLimit:      20,
			IdleTimeout:       Duration{60 * time.Second},
			SelectionDebounce: Duration{300 * time.Millisecond},
			SelectionMinLen:   3,
			RevealDelay:       Duration{18 * time.Millisecond},
			LoadingInterval:   Duration{2 * time.Second},
			ReflexDelay:       Duration{600 * time.Millisecond},
		},
	}
}

// Dir returns the learnemg config directory, falling back to ~/.config.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "learnemg"), nil
}

// DefaultPath is the config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	cfg.applyEnv()

	if cfg.DataDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}

	cfg.Validate()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("LEARNEMG_MODEL"); v != "" {
		c.API.Model = v
	}
	if v := os.Getenv("LEARNEMG_CONTENT_DIR"); v != "" {
		c.ContentDir = v
	}
}

// Validate replaces unusable values with defaults.
func (c *Config) Validate() {
	def := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.Model == "" {
		c.API.Model = def.API.Model
	}
	if c.API.RequestTimeout.Duration <= 0 {
		c.API.RequestTimeout = def.API.RequestTimeout
	}
	if c.API.RequestsPerMinute < 0 {
		c.API.RequestsPerMinute = 0
	}

	cc := &c.Companion
	if cc.HistoryLimit <= 0 {
		cc.HistoryLimit = def.Companion.HistoryLimit
	}
	clamp := func(d *Duration, fallback Duration) {
		if d.Duration <= 0 {
			*d = fallback
		}
	}
	clamp(&cc.IdleTimeout, def.Companion.IdleTimeout)
	clamp(&cc.SelectionDebounce, def.Companion.SelectionDebounce)
	clamp(&cc.RevealDelay, def.Companion.RevealDelay)
	clamp(&cc.LoadingInterval, def.Companion.LoadingInterval)
	clamp(&cc.ReflexDelay, def.Companion.ReflexDelay)
	if cc.SelectionMinLen < 1 {
		cc.SelectionMinLen = def.Companion.SelectionMinLen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Path joins name onto the data directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.DataDir, name)
}
