package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caldirhq/caldir/internal/event"
)

func TestReadKnownIdentitiesMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	known := readKnownIdentities(filepath.Join(dir, "state"))
	if len(known) != 0 {
		t.Fatalf("expected empty set, got %v", known)
	}
}

func TestWriteAndReadKnownIdentitiesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, ".caldir", "state")

	known := map[event.Identity]bool{
		{UID: "b@ex"}: true,
		{UID: "a@ex"}: true,
		{UID: "a@ex", RecurrenceID: "20250101T000000Z"}: true,
	}
	if err := writeKnownIdentities(stateDir, known); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(stateDir, knownEventIDsFile))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	// sorted lexicographically
	want := "a@ex\na@ex__20250101T000000Z\nb@ex\n"
	if string(data) != want {
		t.Fatalf("got %q want %q", string(data), want)
	}

	got := readKnownIdentities(stateDir)
	if len(got) != 3 {
		t.Fatalf("expected 3 identities, got %d", len(got))
	}
}
