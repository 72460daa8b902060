// Package ics implements the RFC 5545 subset caldir needs: parsing a
// VCALENDAR/VEVENT/VALARM document into an event.Event and generating one
// back out. Unfolding and low-level property/parameter tokenizing is
// delegated to go-ical; the event-shaped semantics (which properties are
// required, what a missing one means, the emitted omissions) are
// caldir's own.
package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/caldirhq/caldir/internal/event"
)

// Parse reads a single VEVENT out of an ICS document. A document
// containing more than one VEVENT (a recurring master plus overrides
// stored in one file) returns the first; caldir's store never writes
// more than one VEVENT per file, so multi-event files only arise from
// hand-edited or foreign input, which is out of scope.
func Parse(data string) (*event.Event, error) {
	cal, err := ical.NewDecoder(strings.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("decode ics: %w", err)
	}
	return ParseCalendar(cal)
}

// ParseCalendar reads a single VEVENT out of an already-decoded
// go-ical Calendar, for callers (the CalDAV backend) that get one
// handed to them by a library method instead of raw bytes.
func ParseCalendar(cal *ical.Calendar) (*event.Event, error) {
	var vevent *ical.Component
	for _, c := range cal.Children {
		if c.Name == "VEVENT" {
			vevent = c
			break
		}
	}
	if vevent == nil {
		return nil, fmt.Errorf("decode ics: no VEVENT component")
	}

	return parseVEvent(vevent)
}

func parseVEvent(c *ical.Component) (*event.Event, error) {
	uid := c.Props.Get("UID")
	if uid == nil || uid.Value == "" {
		return nil, fmt.Errorf("parse vevent: missing UID")
	}
	e := &event.Event{UID: uid.Value}

	// DTSTAMP is required on every VEVENT but, per generate.go, is
	// re-stamped to the current time whenever the event has no real
	// modification time of its own — it is not a reliable signal of
	// "was this ever updated". LAST-MODIFIED carries that meaning
	// instead, and is only present when Generate had one to write.
	if lastMod := c.Props.Get("LAST-MODIFIED"); lastMod != nil {
		t, err := time.Parse("20060102T150405Z", lastMod.Value)
		if err == nil {
			e.Updated = t
			e.HasUpdated = true
		}
	}

	start := c.Props.Get("DTSTART")
	if start == nil {
		return nil, fmt.Errorf("parse vevent %s: missing DTSTART", uid.Value)
	}
	st, err := parseEventTime(start)
	if err != nil {
		return nil, fmt.Errorf("parse vevent %s: %w", uid.Value, err)
	}
	e.Start = st

	if end := c.Props.Get("DTEND"); end != nil {
		et, err := parseEventTime(end)
		if err != nil {
			return nil, fmt.Errorf("parse vevent %s: %w", uid.Value, err)
		}
		e.End = et
	} else {
		e.End = e.Start
	}

	if rid := c.Props.Get("RECURRENCE-ID"); rid != nil {
		t, err := parseEventTime(rid)
		if err != nil {
			return nil, fmt.Errorf("parse vevent %s: %w", uid.Value, err)
		}
		e.RecurrenceID = &t
	}

	if summary := c.Props.Get("SUMMARY"); summary != nil {
		e.Summary = unescapeText(summary.Value)
	}
	if desc := c.Props.Get("DESCRIPTION"); desc != nil {
		v := unescapeText(desc.Value)
		e.Description = &v
	}
	if loc := c.Props.Get("LOCATION"); loc != nil {
		v := unescapeText(loc.Value)
		e.Location = &v
	}

	switch valueOrEmpty(c, "STATUS") {
	case "TENTATIVE":
		e.Status = event.Tentative
	case "CANCELLED":
		e.Status = event.Cancelled
	default:
		e.Status = event.Confirmed
	}

	if valueOrEmpty(c, "TRANSP") == "TRANSPARENT" {
		e.Transparency = event.Transparent
	}

	if rrule := c.Props.Get("RRULE"); rrule != nil {
		v := rrule.Value
		e.RRule = &v
	}

	for _, prop := range c.Props.Values("EXDATE") {
		ex, err := parseEventTime(&prop)
		if err != nil {
			return nil, fmt.Errorf("parse vevent %s: bad EXDATE: %w", uid.Value, err)
		}
		e.EXDates = append(e.EXDates, ex)
	}

	if seq := c.Props.Get("SEQUENCE"); seq != nil {
		n, err := strconv.ParseUint(seq.Value, 10, 32)
		if err == nil {
			e.Sequence = uint32(n)
		}
	}

	if org := c.Props.Get("ORGANIZER"); org != nil {
		a := parseAttendee(org, false)
		e.Organizer = &a
	}
	for _, prop := range c.Props.Values("ATTENDEE") {
		e.Attendees = append(e.Attendees, parseAttendee(&prop, true))
	}

	if url := c.Props.Get("X-CALDIR-CONFERENCE-URL"); url != nil {
		v := unescapeText(url.Value)
		e.ConferenceURL = &v
	}

	known := map[string]bool{
		"UID": true, "DTSTAMP": true, "LAST-MODIFIED": true, "DTSTART": true, "DTEND": true,
		"RECURRENCE-ID": true, "SUMMARY": true, "DESCRIPTION": true,
		"LOCATION": true, "STATUS": true, "TRANSP": true, "RRULE": true,
		"EXDATE": true, "SEQUENCE": true, "ORGANIZER": true, "ATTENDEE": true,
		"X-CALDIR-CONFERENCE-URL": true,
	}
	for name, props := range c.Props {
		if known[name] || len(props) == 0 {
			continue
		}
		e.CustomProperties = append(e.CustomProperties, event.Property{Name: name, Value: props[0].Value})
	}

	for _, child := range c.Children {
		if child.Name != "VALARM" {
			continue
		}
		if r, ok := parseVAlarm(child); ok {
			e.Reminders = append(e.Reminders, r)
		}
	}

	return e, nil
}

func valueOrEmpty(c *ical.Component, name string) string {
	if p := c.Props.Get(name); p != nil {
		return p.Value
	}
	return ""
}

func parseEventTime(p *ical.Prop) (event.EventTime, error) {
	if p.Params.Get("VALUE") == "DATE" {
		t, err := time.Parse("20060102", p.Value)
		if err != nil {
			return event.EventTime{}, fmt.Errorf("bad DATE value %q: %w", p.Value, err)
		}
		return event.NewAllDay(t.Year(), t.Month(), t.Day()), nil
	}

	if tzid := p.Params.Get("TZID"); tzid != "" {
		t, err := time.Parse("20060102T150405", p.Value)
		if err != nil {
			return event.EventTime{}, fmt.Errorf("bad zoned value %q: %w", p.Value, err)
		}
		return event.NewZoned(t, tzid), nil
	}

	if strings.HasSuffix(p.Value, "Z") {
		t, err := time.Parse("20060102T150405Z", p.Value)
		if err != nil {
			return event.EventTime{}, fmt.Errorf("bad UTC value %q: %w", p.Value, err)
		}
		return event.NewUTC(t), nil
	}

	t, err := time.Parse("20060102T150405", p.Value)
	if err != nil {
		return event.EventTime{}, fmt.Errorf("bad floating value %q: %w", p.Value, err)
	}
	return event.NewFloating(t), nil
}

func parseAttendee(p *ical.Prop, withPartStat bool) event.Attendee {
	a := event.Attendee{
		CN:    p.Params.Get("CN"),
		Email: strings.TrimPrefix(strings.TrimPrefix(p.Value, "mailto:"), "MAILTO:"),
	}
	if withPartStat {
		if ps, ok := event.ParseParticipationStatus(p.Params.Get("PARTSTAT")); ok {
			a.PartStat = ps
			a.HasPartStat = true
		}
	}
	return a
}

func parseVAlarm(c *ical.Component) (event.Reminder, bool) {
	trigger := c.Props.Get("TRIGGER")
	if trigger == nil {
		return event.Reminder{}, false
	}
	minutes, ok := parseNegativeDurationMinutes(trigger.Value)
	if !ok {
		return event.Reminder{}, false
	}
	return event.Reminder{MinutesBefore: minutes}, true
}

// parseNegativeDurationMinutes parses a RFC 5545 §3.3.6 DURATION value of
// the form caldir always writes ("-PT{n}M") and tolerates the related
// hour/day forms other clients may have written.
func parseNegativeDurationMinutes(v string) (uint32, bool) {
	v = strings.TrimPrefix(v, "-")
	if !strings.HasPrefix(v, "P") {
		return 0, false
	}
	v = strings.TrimPrefix(v, "P")

	var days, hours, minutes int
	timePart := false
	num := ""
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			timePart = true
		case r == 'D':
			n, _ := strconv.Atoi(num)
			days = n
			num = ""
		case r == 'H':
			n, _ := strconv.Atoi(num)
			hours = n
			num = ""
		case r == 'M':
			n, _ := strconv.Atoi(num)
			minutes = n
			num = ""
		default:
			return 0, false
		}
	}
	_ = timePart
	total := days*24*60 + hours*60 + minutes
	if total < 0 {
		return 0, false
	}
	return uint32(total), true
}
