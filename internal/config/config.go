// Package config loads caldir's global configuration: the calendar
// directory root and the optional default calendar name. It follows the
// same layering as a provider-specific config would (file, then
// environment, then flags, later wins), just with a much smaller set of
// keys since per-calendar settings live in .caldir/config.toml instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const defaultCalendarDirName = "calendar"

// Config is caldir's global config.toml, read-only to the sync core.
type Config struct {
	CalendarDir     string `toml:"calendar_dir"`
	DefaultCalendar string `toml:"default_calendar,omitempty"`
}

// fileConfig loads path if it exists, returning a zero Config if it
// doesn't — a missing global config file is not an error, since every
// field has a usable default.
func fileConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the global config with precedence (highest to lowest):
//  1. flagCalendarDir / flagDefaultCalendar, as passed from cmd/caldir's
//     --calendar-dir / --default-calendar flags
//  2. CALDIR_CALENDAR_DIR / CALDIR_DEFAULT_CALENDAR environment variables
//  3. configPath (config.toml), if it exists
//  4. defaults (calendar_dir = ~/calendar)
func Load(configPath, flagCalendarDir, flagDefaultCalendar string) (*Config, error) {
	cfg, err := fileConfig(configPath)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CALDIR_CALENDAR_DIR"); v != "" {
		cfg.CalendarDir = v
	}
	if v := os.Getenv("CALDIR_DEFAULT_CALENDAR"); v != "" {
		cfg.DefaultCalendar = v
	}

	if flagCalendarDir != "" {
		cfg.CalendarDir = flagCalendarDir
	}
	if flagDefaultCalendar != "" {
		cfg.DefaultCalendar = flagDefaultCalendar
	}

	if cfg.CalendarDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default calendar_dir: %w", err)
		}
		cfg.CalendarDir = filepath.Join(home, defaultCalendarDirName)
	}

	expanded, err := expandHome(cfg.CalendarDir)
	if err != nil {
		return nil, err
	}
	cfg.CalendarDir = expanded

	return &cfg, nil
}

// DefaultPath returns the conventional location of the global
// config.toml, ~/.config/caldir/config.toml, following XDG_CONFIG_HOME
// when set.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "caldir", "config.toml"), nil
}

// expandHome resolves a leading "~" to the user's home directory, the
// only shell expansion config.toml values need since they never carry
// environment variables or globs.
func expandHome(path string) (string, error) {
	if path != "~" && !hasHomePrefix(path) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand ~ in calendar_dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func hasHomePrefix(path string) bool {
	return len(path) >= 2 && path[0] == '~' && path[1] == filepath.Separator
}
