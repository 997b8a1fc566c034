// Package config resolves the effective settings from defaults, a YAML
// file and FYGALLERY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeNotFound means an explicitly named config file does not exist.
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid means the file cannot be read or parsed, or a value is out of range.
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultPageSize          = 50
	DefaultSlideshowInterval = 3 * time.Second
	DefaultConcurrency       = 8
	MinSlideshowInterval     = 100 * time.Millisecond
	MaxConcurrency           = 64
)

// Storage selects the preferences backend.
type Storage struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Config is the effective configuration.
type Config struct {
	PageSize          int           `yaml:"page_size"`
	SlideshowInterval time.Duration `yaml:"slideshow_interval"`
	Concurrency       int           `yaml:"concurrency"`
	IDScheme          string        `yaml:"ids"`
	Storage           Storage       `yaml:"storage"`
	Theme             string        `yaml:"theme"`
	Folders           []string      `yaml:"folders"`
}

// Error is a structured configuration error.
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s: config file %q not found", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s: config %q is invalid: %v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: config %q is invalid", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code extracts the error code from err, or "" when err is not an *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PageSize:          DefaultPageSize,
		SlideshowInterval: DefaultSlideshowInterval,
		Concurrency:       DefaultConcurrency,
		IDScheme:          "session",
		Storage:           Storage{Backend: "bolt"},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fygallery", "config.yaml")
}

// Load reads path over the defaults, then applies the environment. A
// missing file is fine unless explicit is set. An empty path skips the file.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			if explicit {
				return Config{}, &Error{Code: ErrCodeNotFound, Path: path, Err: err}
			}
		case err != nil:
			return Config{}, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: "environment", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("FYGALLERY_PAGE_SIZE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("FYGALLERY_PAGE_SIZE: %w", err)
		}
		c.PageSize = n
	}
	if v, ok := lookup("FYGALLERY_SLIDESHOW_INTERVAL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("FYGALLERY_SLIDESHOW_INTERVAL: %w", err)
		}
		c.SlideshowInterval = d
	}
	if v, ok := lookup("FYGALLERY_CONCURRENCY"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("FYGALLERY_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	if v, ok := lookup("FYGALLERY_IDS"); ok {
		c.IDScheme = strings.TrimSpace(v)
	}
	if v, ok := lookup("FYGALLERY_STORAGE"); ok {
		c.Storage.Backend = strings.TrimSpace(v)
	}
	if v, ok := lookup("FYGALLERY_DB"); ok {
		c.Storage.Path = strings.TrimSpace(v)
	}
	if v, ok := lookup("FYGALLERY_THEME"); ok {
		c.Theme = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks every field. Concurrency is clamped into [1, MaxConcurrency].
func (c *Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1, got %d", c.PageSize)
	}
	if c.SlideshowInterval < MinSlideshowInterval {
		return fmt.Errorf("slideshow_interval must be at least %s, got %s", MinSlideshowInterval, c.SlideshowInterval)
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Concurrency > MaxConcurrency {
		c.Concurrency = MaxConcurrency
	}
	switch c.Storage.Backend {
	case "bolt", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.IDScheme {
	case "session", "stable":
	default:
		return fmt.Errorf("unknown id scheme %q", c.IDScheme)
	}
	switch c.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("unknown theme %q", c.Theme)
	}
	return nil
}
