// Package store implements the on-disk calendar directory: one .ics file
// per event, a .caldir/config.toml describing the calendar, and a
// .caldir/state/known_event_ids file recording which identities were
// already synced with the remote at least once.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/caldirhq/caldir/internal/caldirerr"
	"github.com/caldirhq/caldir/internal/event"
	"github.com/caldirhq/caldir/internal/ics"
)

// LocalEvent pairs a parsed event with the file it lives in and that
// file's modification time, used by the diff engine to break ties
// against a remote's `updated` timestamp.
type LocalEvent struct {
	Event    *event.Event
	Path     string
	Filename string
	ModTime  int64 // unix seconds
}

// CalendarStore is a loaded snapshot of a calendar directory.
type CalendarStore struct {
	Dir    string
	Config *CalendarConfig

	Events map[event.Identity]LocalEvent
	Known  map[event.Identity]bool

	// Warnings collects non-fatal problems discovered at load: unparsable
	// .ics files (kept on disk, excluded from Events) and duplicate
	// identities across files.
	Warnings []string
}

// Load reads a calendar directory's config, state, and every .ics file
// in it. A malformed individual .ics file is recorded as a warning and
// excluded from the diff rather than aborting the whole load.
func Load(dir string) (*CalendarStore, error) {
	cfg, err := LoadCalendarConfig(dir)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindIO, "load calendar config", err)
	}

	stateDir := filepath.Join(dir, ".caldir", "state")
	known := readKnownIdentities(stateDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindIO, "read calendar directory", err)
	}

	cs := &CalendarStore{
		Dir:    dir,
		Config: cfg,
		Events: make(map[event.Identity]LocalEvent),
		Known:  known,
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ics") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			cs.Warnings = append(cs.Warnings, fmt.Sprintf("read %s: %v", entry.Name(), err))
			continue
		}
		e, err := ics.Parse(string(data))
		if err != nil {
			cs.Warnings = append(cs.Warnings, fmt.Sprintf("parse %s: %v", entry.Name(), err))
			continue
		}

		info, err := entry.Info()
		var modTime int64
		if err == nil {
			modTime = info.ModTime().Unix()
		}

		id := e.Identity()
		if existing, dup := cs.Events[id]; dup {
			cs.Warnings = append(cs.Warnings, fmt.Sprintf(
				"duplicate identity %s in %s and %s; keeping %s", id, existing.Filename, entry.Name(), existing.Filename))
			continue
		}
		cs.Events[id] = LocalEvent{Event: e, Path: path, Filename: entry.Name(), ModTime: modTime}
	}

	for _, w := range cs.Warnings {
		log.Printf("Warning: %s: %s", dir, w)
	}

	return cs, nil
}

// stemOf strips the .ics extension from a filename.
func stemOf(filename string) string {
	return strings.TrimSuffix(filename, ".ics")
}

// Write assigns a filename (or reuses the event's existing one, renaming
// the file if the summary changed enough to change the slug) and
// atomically writes the generated ICS document. It returns the filename
// used.
func (cs *CalendarStore) Write(e *event.Event) (string, error) {
	if e.RRule != nil {
		if err := event.ValidateRRule(*e.RRule, e.Start); err != nil {
			return "", caldirerr.Wrap(caldirerr.KindParse, "write "+e.UID, err)
		}
	}

	id := e.Identity()
	existing, hadFile := cs.Events[id]

	stem := baseFilename(e)
	filename := existing.Filename
	if !hadFile || (stemOf(existing.Filename) != stem && !hasCollisionSuffix(stemOf(existing.Filename), stem)) {
		fn, err := assignFilename(e, func(candidate string) bool {
			for otherID, le := range cs.Events {
				if otherID == id {
					continue
				}
				if stemOf(le.Filename) == candidate {
					return true
				}
			}
			return false
		})
		if err != nil {
			return "", caldirerr.Wrap(caldirerr.KindIO, "assign filename", err)
		}
		filename = fn
	}

	path := filepath.Join(cs.Dir, filename)
	if err := atomicWrite(path, []byte(ics.Generate(e))); err != nil {
		return "", caldirerr.Wrap(caldirerr.KindIO, fmt.Sprintf("write %s", filename), err)
	}

	if hadFile && existing.Filename != filename {
		if err := os.Remove(existing.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: %s: remove stale file %s after rename: %v", cs.Dir, existing.Filename, err)
		}
	}

	cs.Events[id] = LocalEvent{Event: e, Path: path, Filename: filename, ModTime: fileModTime(path)}
	return filename, nil
}

// hasCollisionSuffix reports whether existingStem is stem with a
// "-N" collision suffix appended, so a rewrite of an already-suffixed
// file does not spuriously reassign a new suffix on every write.
func hasCollisionSuffix(existingStem, stem string) bool {
	if !strings.HasPrefix(existingStem, stem+"-") {
		return false
	}
	suffix := existingStem[len(stem)+1:]
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return suffix != ""
}

func fileModTime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}

// Delete removes the .ics file for id, if present.
func (cs *CalendarStore) Delete(id event.Identity) error {
	le, ok := cs.Events[id]
	if !ok {
		return nil
	}
	if err := os.Remove(le.Path); err != nil && !os.IsNotExist(err) {
		return caldirerr.Wrap(caldirerr.KindIO, fmt.Sprintf("delete %s", le.Filename), err)
	}
	delete(cs.Events, id)
	return nil
}

// FlushKnown atomically overwrites known_event_ids with cs.Known.
func (cs *CalendarStore) FlushKnown() error {
	stateDir := filepath.Join(cs.Dir, ".caldir", "state")
	if err := writeKnownIdentities(stateDir, cs.Known); err != nil {
		return caldirerr.Wrap(caldirerr.KindIO, "write known_event_ids", err)
	}
	return nil
}
