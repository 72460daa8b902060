package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caldirhq/caldir/internal/event"
)

const knownEventIDsFile = "known_event_ids"

// readKnownIdentities reads the .caldir/state/known_event_ids file. A
// missing or unreadable file is treated as an empty set rather than an
// error — a freshly created calendar directory has no state yet, and
// caldir should never fail to load because of it.
func readKnownIdentities(stateDir string) map[event.Identity]bool {
	known := make(map[event.Identity]bool)

	f, err := os.Open(filepath.Join(stateDir, knownEventIDsFile))
	if err != nil {
		return known
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		known[event.ParseIdentity(line)] = true
	}
	return known
}

// writeKnownIdentities atomically overwrites known_event_ids with the
// sorted, deduplicated, LF-terminated identity list.
func writeKnownIdentities(stateDir string, known map[event.Identity]bool) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	ids := make([]string, 0, len(known))
	for id := range known {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('\n')
	}

	return atomicWrite(filepath.Join(stateDir, knownEventIDsFile), []byte(b.String()))
}

// atomicWrite writes data to a temp file in the target's directory and
// renames it into place, so a reader never observes a partially written
// file and a crash mid-write never corrupts the previous contents.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".caldir-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
