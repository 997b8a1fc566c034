// Package prefs stores the theme preference.
package prefs

import (
	"fmt"
	"log"
)

// ThemeKey is the storage key of the theme token.
const ThemeKey = "gallery-theme"

// Theme is a persisted theme token. The zero value means no preference.
type Theme string

const (
	NoTheme Theme = ""
	Dark    Theme = "dark"
	Light   Theme = "light"
)

// LoggerFunc defines a function signature for logging messages.
type LoggerFunc func(message string)

// KV is the subset of storage.KV the preferences need.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// ParseTheme accepts "dark" and "light". Anything else is NoTheme.
func ParseTheme(s string) Theme {
	switch Theme(s) {
	case Dark, Light:
		return Theme(s)
	}
	return NoTheme
}

// Toggle returns the opposite theme. NoTheme toggles to the opposite of the resolved theme.
func (t Theme) Toggle(systemPrefersDark bool) Theme {
	if Resolve(t, systemPrefersDark) == Dark {
		return Light
	}
	return Dark
}

// LoadTheme reads the saved theme. Failures and unknown tokens yield NoTheme.
func LoadTheme(kv KV, logger LoggerFunc) Theme {
	if kv == nil {
		return NoTheme
	}
	raw, ok, err := kv.Get(ThemeKey)
	if err != nil {
		logMessage(logger, "Warning: could not read theme: %v", err)
		return NoTheme
	}
	if !ok {
		return NoTheme
	}
	t := ParseTheme(raw)
	if t == NoTheme {
		logMessage(logger, "Warning: ignoring unknown theme %q", raw)
	}
	return t
}

// SaveTheme writes t. NoTheme is not written.
func SaveTheme(kv KV, t Theme) error {
	if kv == nil || t == NoTheme {
		return nil
	}
	if err := kv.Set(ThemeKey, string(t)); err != nil {
		return fmt.Errorf("saving theme: %w", err)
	}
	return nil
}

// Resolve picks the effective theme: a saved choice wins, otherwise the
// system preference decides.
func Resolve(saved Theme, systemPrefersDark bool) Theme {
	if saved != NoTheme {
		return saved
	}
	if systemPrefersDark {
		return Dark
	}
	return Light
}

func logMessage(logger LoggerFunc, format string, args ...interface{}) {
	if logger != nil {
		logger(fmt.Sprintf(format, args...))
	} else {
		log.Printf(format, args...)
	}
}
