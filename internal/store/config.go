package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const configFileName = "config.toml"

// RemoteConfig is the [remote] section of a calendar's config.toml: which
// provider binary syncs this calendar and the provider-specific fields it
// needs. Provider-specific keys are collected loosely rather than typed
// per-provider, since caldir's core never interprets them — they are
// passed through verbatim as remote_config to the provider subprocess's
// list_calendars, list_events, create_event, update_event and
// delete_event calls.
type RemoteConfig struct {
	Provider string
	Fields   map[string]string
}

// CalendarConfig is the .caldir/config.toml written alongside a calendar
// directory's events.
type CalendarConfig struct {
	Name   string
	Color  string
	Remote *RemoteConfig
}

// LoadCalendarConfig reads .caldir/config.toml under dir.
func LoadCalendarConfig(dir string) (*CalendarConfig, error) {
	path := filepath.Join(dir, ".caldir", configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar config %s: %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calendar config %s: %w", path, err)
	}

	cfg := &CalendarConfig{}
	if name, ok := raw["name"].(string); ok {
		cfg.Name = name
	}
	if color, ok := raw["color"].(string); ok {
		cfg.Color = color
	}
	if remoteRaw, ok := raw["remote"].(map[string]any); ok {
		rc := &RemoteConfig{Fields: make(map[string]string)}
		for k, v := range remoteRaw {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if k == "provider" {
				rc.Provider = s
				continue
			}
			rc.Fields[k] = s
		}
		cfg.Remote = rc
	}

	if cfg.Name == "" {
		return nil, fmt.Errorf("parse calendar config %s: missing name", path)
	}
	return cfg, nil
}

// SaveCalendarConfig atomically writes .caldir/config.toml under dir.
func SaveCalendarConfig(dir string, cfg *CalendarConfig) error {
	caldirDir := filepath.Join(dir, ".caldir")
	if err := os.MkdirAll(caldirDir, 0755); err != nil {
		return fmt.Errorf("create .caldir dir: %w", err)
	}

	raw := map[string]any{"name": cfg.Name}
	if cfg.Color != "" {
		raw["color"] = cfg.Color
	}
	if cfg.Remote != nil {
		remote := map[string]any{"provider": cfg.Remote.Provider}
		for k, v := range cfg.Remote.Fields {
			remote[k] = v
		}
		raw["remote"] = remote
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return fmt.Errorf("encode calendar config: %w", err)
	}

	return atomicWrite(filepath.Join(caldirDir, configFileName), buf.Bytes())
}
