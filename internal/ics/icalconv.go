package ics

import (
	ical "github.com/emersion/go-ical"

	"github.com/caldirhq/caldir/internal/event"
)

// ToICalCalendar renders e the same way Generate does, but returns the
// typed go-ical value directly rather than encoded bytes — the CalDAV
// backend's PutCalendarObject takes a *ical.Calendar, not text.
func ToICalCalendar(e *event.Event) (*ical.Calendar, error) {
	return buildCalendar(e), nil
}
