package store

import (
	"testing"
	"time"

	"github.com/caldirhq/caldir/internal/event"
)

func TestSlugifyCollapsesAndTruncates(t *testing.T) {
	if got := slugify("Weekly 1:1 -- Sync!!"); got != "weekly-1-1-sync" {
		t.Fatalf("got %q", got)
	}
	if got := slugify(""); got != "untitled" {
		t.Fatalf("expected untitled for empty summary, got %q", got)
	}
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	if got := slugify(long); len(got) > 60 {
		t.Fatalf("expected truncation to 60 chars, got %d", len(got))
	}
}

func TestBaseFilenameVariants(t *testing.T) {
	rrule := "FREQ=WEEKLY"
	master := &event.Event{Summary: "Standup", RRule: &rrule, Start: event.NewUTC(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))}
	if got := baseFilename(master); got != "_recurring__standup" {
		t.Fatalf("got %q", got)
	}

	allDay := &event.Event{Summary: "Holiday", Start: event.NewAllDay(2025, time.December, 25)}
	if got := baseFilename(allDay); got != "2025-12-25__holiday" {
		t.Fatalf("got %q", got)
	}

	timed := &event.Event{Summary: "Standup", Start: event.NewUTC(time.Date(2025, 3, 20, 15, 30, 0, 0, time.UTC))}
	if got := baseFilename(timed); got != "2025-03-20T1530__standup" {
		t.Fatalf("got %q", got)
	}
}

func TestAssignFilenameHandlesCollisions(t *testing.T) {
	e := &event.Event{Summary: "Standup", Start: event.NewUTC(time.Date(2025, 3, 20, 15, 30, 0, 0, time.UTC))}
	taken := map[string]bool{"2025-03-20T1530__standup": true, "2025-03-20T1530__standup-2": true}
	name, err := assignFilename(e, func(stem string) bool { return taken[stem] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "2025-03-20T1530__standup-3.ics" {
		t.Fatalf("got %q", name)
	}
}

func TestAssignFilenameGivesUpAfterCap(t *testing.T) {
	e := &event.Event{Summary: "Standup", Start: event.NewUTC(time.Date(2025, 3, 20, 15, 30, 0, 0, time.UTC))}
	if _, err := assignFilename(e, func(stem string) bool { return true }); err == nil {
		t.Fatalf("expected error once every candidate is taken")
	}
}
