package ics

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	ical "github.com/emersion/go-ical"

	"github.com/caldirhq/caldir/internal/event"
)

// Generate renders an Event as a complete VCALENDAR document.
//
// The document is built as a go-ical Component/Props tree and encoded
// with go-ical's Encoder, the way the teacher's googleEventToICal in
// applecalendar.go builds a *ical.Calendar and hands it to
// ical.NewEncoder — TEXT escaping is the library's job. The encoder
// writes each content line whole, so Generate folds the encoded text at
// 75 octets itself, never splitting a UTF-8 sequence. The property
// omissions (no CALSCALE, a fixed PRODID, STATUS/TRANSP skipped at their
// default value) are decided before a single Prop is ever set rather
// than stripped out of finished text, matching
// original_source/caldir-core's ics/generate.rs.
func Generate(e *event.Event) string {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(buildCalendar(e)); err != nil {
		// Encode only fails writing to buf, which is an in-memory
		// bytes.Buffer and cannot return an error.
		panic("ics: encode calendar: " + err.Error())
	}
	var out strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n") {
		// A continuation line's leading space counts toward its 75 octets.
		limit := 75
		for len(line) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			out.WriteString(line[:cut] + "\r\n ")
			line = line[cut:]
			limit = 74
		}
		out.WriteString(line + "\r\n")
	}
	return out.String()
}

// buildCalendar renders e as a go-ical Calendar value, shared by Generate
// and ToICalCalendar so a caller that needs the typed value (the CalDAV
// backend's PutCalendarObject) doesn't have to round-trip through text.
func buildCalendar(e *event.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//caldir//caldir//EN")
	cal.Children = append(cal.Children, buildVEvent(e))
	return cal
}

func buildVEvent(e *event.Event) *ical.Component {
	vevent := ical.NewComponent(ical.CompEvent)
	vevent.Props.SetText(ical.PropUID, e.UID)

	// DTSTAMP is required by RFC 5545 on every VEVENT; fall back to the
	// current time when the event carries no updated timestamp of its
	// own. LAST-MODIFIED, unlike DTSTAMP, is only emitted when there is
	// a real modification time to report.
	stamp := time.Now().UTC()
	if e.HasUpdated {
		stamp = e.Updated.UTC()
	}
	setDateTimeProp(vevent, ical.PropDateTimeStamp, event.NewUTC(stamp))
	if e.HasUpdated {
		setDateTimeProp(vevent, ical.PropLastModified, event.NewUTC(e.Updated.UTC()))
	}

	setDateTimeProp(vevent, ical.PropDateTimeStart, e.Start)
	setDateTimeProp(vevent, ical.PropDateTimeEnd, e.End)

	if e.RecurrenceID != nil {
		setDateTimeProp(vevent, "RECURRENCE-ID", *e.RecurrenceID)
	}

	vevent.Props.SetText(ical.PropSummary, e.Summary)

	if e.Description != nil {
		vevent.Props.SetText(ical.PropDescription, *e.Description)
	}
	if e.Location != nil {
		vevent.Props.SetText(ical.PropLocation, *e.Location)
	}

	if e.Status != event.Confirmed {
		vevent.Props.SetText("STATUS", e.Status.String())
	}
	if e.Transparency == event.Transparent {
		vevent.Props.SetText("TRANSP", e.Transparency.String())
	}

	if e.RRule != nil {
		vevent.Props.SetText("RRULE", *e.RRule)
	}
	for _, ex := range e.EXDates {
		p := ical.NewProp("EXDATE")
		setDateTimeValue(p, ex)
		vevent.Props.Add(p)
	}

	if e.Sequence != 0 {
		vevent.Props.SetText("SEQUENCE", fmt.Sprintf("%d", e.Sequence))
	}

	if e.Organizer != nil {
		vevent.Props.Set(attendeeProp("ORGANIZER", *e.Organizer, false))
	}
	for _, a := range e.Attendees {
		vevent.Props.Add(attendeeProp("ATTENDEE", a, true))
	}

	if e.ConferenceURL != nil {
		vevent.Props.SetText("X-CALDIR-CONFERENCE-URL", *e.ConferenceURL)
	}

	for _, p := range e.CustomProperties {
		vevent.Props.SetText(p.Name, p.Value)
	}

	for _, r := range e.Reminders {
		vevent.Children = append(vevent.Children, buildVAlarm(r))
	}

	return vevent
}

func buildVAlarm(r event.Reminder) *ical.Component {
	valarm := ical.NewComponent("VALARM")
	valarm.Props.SetText("ACTION", "DISPLAY")
	valarm.Props.SetText("DESCRIPTION", "Reminder")
	// TRIGGER is a DURATION value; SetText would tag it VALUE=TEXT.
	trigger := ical.NewProp("TRIGGER")
	trigger.Value = fmt.Sprintf("-PT%dM", r.MinutesBefore)
	valarm.Props.Set(trigger)
	return valarm
}

func attendeeProp(name string, a event.Attendee, withPartStat bool) *ical.Prop {
	p := ical.NewProp(name)
	if a.CN != "" {
		p.Params.Set("CN", a.CN)
	}
	if withPartStat && a.HasPartStat {
		p.Params.Set("PARTSTAT", a.PartStat.ICSValue())
	}
	p.Value = "mailto:" + a.Email
	return p
}

// setDateTimeProp sets name on c to t, choosing VALUE=DATE or a TZID
// parameter the way DTSTART/DTEND/RECURRENCE-ID/EXDATE require
// depending on t's Kind.
func setDateTimeProp(c *ical.Component, name string, t event.EventTime) {
	p := ical.NewProp(name)
	setDateTimeValue(p, t)
	c.Props.Set(p)
}

func setDateTimeValue(p *ical.Prop, t event.EventTime) {
	switch t.Kind {
	case event.AllDay:
		p.Params.Set("VALUE", "DATE")
	case event.Zoned:
		p.Params.Set("TZID", t.TZID)
	}
	p.Value = t.ICSValue()
}
