package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caldirhq/caldir/internal/provider"
	"github.com/caldirhq/caldir/internal/store"
	"github.com/caldirhq/caldir/internal/sync"
)

// resolveCalendar picks the calendar name from args if given, else the
// configured default, and returns its directory under cfg.CalendarDir.
func resolveCalendar(args []string) (string, string, error) {
	name := defaultCalFlag
	if cfg.DefaultCalendar != "" && name == "" {
		name = cfg.DefaultCalendar
	}
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return "", "", fmt.Errorf("no calendar specified and no default_calendar configured")
	}
	return name, filepath.Join(cfg.CalendarDir, name), nil
}

// remoteFor loads dir's .caldir/config.toml and resolves its [remote]
// section into a Remote and the provider-specific field map, or nil if
// the calendar has no [remote] section and is local-only.
func remoteFor(dir string) (provider.Remote, map[string]string, error) {
	calCfg, err := store.LoadCalendarConfig(dir)
	if err != nil {
		return nil, nil, err
	}
	if calCfg.Remote == nil {
		return nil, nil, nil
	}
	remote, err := provider.NewSubprocess(calCfg.Remote.Provider)
	if err != nil {
		return nil, nil, err
	}
	return remote, calCfg.Remote.Fields, nil
}

const (
	defaultWindowPast   = 30 * 24 * time.Hour
	defaultWindowFuture = 180 * 24 * time.Hour
)

func parseWindow(fromFlag, toFlag string) (sync.Window, error) {
	now := time.Now().UTC()
	w := sync.Window{From: now.Add(-defaultWindowPast), To: now.Add(defaultWindowFuture)}
	if fromFlag != "" {
		t, err := time.Parse(time.RFC3339, fromFlag)
		if err != nil {
			return w, fmt.Errorf("parse --from: %w", err)
		}
		w.From = t
	}
	if toFlag != "" {
		t, err := time.Parse(time.RFC3339, toFlag)
		if err != nil {
			return w, fmt.Errorf("parse --to: %w", err)
		}
		w.To = t
	}
	return w, nil
}
