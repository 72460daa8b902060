package google

import (
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/caldirhq/caldir/internal/event"
)

// dateTimeLayout matches what the Google Calendar API accepts/returns for
// a timed EventDateTime.DateTime value.
const dateTimeLayout = "2006-01-02T15:04:05Z07:00"

func toGoogleDateTime(t event.EventTime) *gcal.EventDateTime {
	switch t.Kind {
	case event.AllDay:
		return &gcal.EventDateTime{Date: t.Date.Format("2006-01-02")}
	case event.UTC:
		return &gcal.EventDateTime{DateTime: t.Date.Format(dateTimeLayout)}
	case event.Zoned:
		loc, err := time.LoadLocation(t.TZID)
		if err != nil {
			loc = time.UTC
		}
		local := time.Date(t.Date.Year(), t.Date.Month(), t.Date.Day(), t.Date.Hour(), t.Date.Minute(), t.Date.Second(), 0, loc)
		return &gcal.EventDateTime{DateTime: local.Format(dateTimeLayout), TimeZone: t.TZID}
	default: // Floating
		return &gcal.EventDateTime{DateTime: t.Date.Format("2006-01-02T15:04:05")}
	}
}

func fromGoogleDateTime(d *gcal.EventDateTime) (event.EventTime, error) {
	if d == nil {
		return event.EventTime{}, fmt.Errorf("missing date/time")
	}
	if d.Date != "" {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return event.EventTime{}, fmt.Errorf("parse all-day date %q: %w", d.Date, err)
		}
		return event.NewAllDay(t.Year(), t.Month(), t.Day()), nil
	}
	if d.TimeZone != "" {
		loc, err := time.LoadLocation(d.TimeZone)
		if err != nil {
			t, perr := time.Parse(dateTimeLayout, d.DateTime)
			if perr != nil {
				return event.EventTime{}, fmt.Errorf("parse zoned dateTime %q: %w", d.DateTime, perr)
			}
			return event.NewZoned(t, d.TimeZone), nil
		}
		t, err := time.ParseInLocation(dateTimeLayout, d.DateTime, loc)
		if err != nil {
			return event.EventTime{}, fmt.Errorf("parse zoned dateTime %q: %w", d.DateTime, err)
		}
		return event.NewZoned(t, d.TimeZone), nil
	}
	t, err := time.Parse(dateTimeLayout, d.DateTime)
	if err != nil {
		return event.EventTime{}, fmt.Errorf("parse dateTime %q: %w", d.DateTime, err)
	}
	return event.NewUTC(t.UTC()), nil
}

func toGoogleAttendee(a event.Attendee) *gcal.EventAttendee {
	ga := &gcal.EventAttendee{Email: a.Email, DisplayName: a.CN}
	if a.HasPartStat {
		ga.ResponseStatus = googlePartStat(a.PartStat)
	}
	return ga
}

func googlePartStat(p event.ParticipationStatus) string {
	switch p {
	case event.Accepted:
		return "accepted"
	case event.Declined:
		return "declined"
	case event.PartTentative:
		return "tentative"
	default:
		return "needsAction"
	}
}

func fromGooglePartStat(s string) (event.ParticipationStatus, bool) {
	switch s {
	case "accepted":
		return event.Accepted, true
	case "declined":
		return event.Declined, true
	case "tentative":
		return event.PartTentative, true
	case "needsAction":
		return event.NeedsAction, true
	default:
		return 0, false
	}
}

// ToGoogleEvent converts a caldir Event into the wire shape the Calendar
// API's Events.Insert/Update expect. sendUpdates is left to the caller
// (both call sites pass SendUpdates("none") to avoid emailing attendees
// on every sync pass).
func ToGoogleEvent(e *event.Event) *gcal.Event {
	g := &gcal.Event{
		ICalUID: e.UID,
		Summary: e.Summary,
		Start:   toGoogleDateTime(e.Start),
		End:     toGoogleDateTime(e.End),
	}
	if e.Description != nil {
		g.Description = *e.Description
	}
	if e.Location != nil {
		g.Location = *e.Location
	}
	switch e.Status {
	case event.Tentative:
		g.Status = "tentative"
	case event.Cancelled:
		g.Status = "cancelled"
	default:
		g.Status = "confirmed"
	}
	if e.Transparency == event.Transparent {
		g.Transparency = "transparent"
	} else {
		g.Transparency = "opaque"
	}
	if e.RRule != nil {
		g.Recurrence = append(g.Recurrence, "RRULE:"+*e.RRule)
	}
	for _, ex := range e.EXDates {
		g.Recurrence = append(g.Recurrence, "EXDATE;VALUE=DATE-TIME:"+ex.ICSValue())
	}
	if e.RecurrenceID != nil {
		g.OriginalStartTime = toGoogleDateTime(*e.RecurrenceID)
	}
	if e.Organizer != nil {
		g.Organizer = &gcal.EventOrganizer{Email: e.Organizer.Email, DisplayName: e.Organizer.CN}
	}
	for _, a := range e.Attendees {
		g.Attendees = append(g.Attendees, toGoogleAttendee(a))
	}
	if e.ConferenceURL != nil {
		g.ExtendedProperties = &gcal.EventExtendedProperties{
			Private: map[string]string{"caldirConferenceUrl": *e.ConferenceURL},
		}
	}
	for _, r := range e.Reminders {
		if g.Reminders == nil {
			g.Reminders = &gcal.EventReminders{UseDefault: false, ForceSendFields: []string{"UseDefault"}}
		}
		g.Reminders.Overrides = append(g.Reminders.Overrides, &gcal.EventReminder{Method: "popup", Minutes: int64(r.MinutesBefore)})
	}
	if len(e.CustomProperties) > 0 {
		if g.ExtendedProperties == nil {
			g.ExtendedProperties = &gcal.EventExtendedProperties{Private: map[string]string{}}
		}
		for _, p := range e.CustomProperties {
			g.ExtendedProperties.Private["caldirProp_"+p.Name] = p.Value
		}
	}
	return g
}

// FromGoogleEvent converts a single expanded occurrence back to a caldir
// Event. Callers list with SingleEvents(true), so a recurring series
// never arrives as one RRULE-bearing master; each occurrence in the
// window comes back as its own event carrying RecurringEventId and
// OriginalStartTime, which map onto caldir's (uid, recurrence_id)
// identity the same way an ICS override does.
func FromGoogleEvent(g *gcal.Event) (*event.Event, error) {
	start, err := fromGoogleDateTime(g.Start)
	if err != nil {
		return nil, fmt.Errorf("event %s start: %w", g.Id, err)
	}
	end, err := fromGoogleDateTime(g.End)
	if err != nil {
		return nil, fmt.Errorf("event %s end: %w", g.Id, err)
	}

	e := &event.Event{
		UID:     firstNonEmpty(g.ICalUID, g.Id),
		Start:   start,
		End:     end,
		Summary: g.Summary,
	}

	if g.RecurringEventId != "" && g.OriginalStartTime != nil {
		rid, err := fromGoogleDateTime(g.OriginalStartTime)
		if err == nil {
			e.RecurrenceID = &rid
		}
	}

	if g.Description != "" {
		d := g.Description
		e.Description = &d
	}
	if g.Location != "" {
		l := g.Location
		e.Location = &l
	}

	switch g.Status {
	case "tentative":
		e.Status = event.Tentative
	case "cancelled":
		e.Status = event.Cancelled
	default:
		e.Status = event.Confirmed
	}
	if g.Transparency == "transparent" {
		e.Transparency = event.Transparent
	}

	if g.Organizer != nil {
		e.Organizer = &event.Attendee{CN: g.Organizer.DisplayName, Email: g.Organizer.Email}
	}
	for _, a := range g.Attendees {
		ea := event.Attendee{CN: a.DisplayName, Email: a.Email}
		if ps, ok := fromGooglePartStat(a.ResponseStatus); ok {
			ea.PartStat, ea.HasPartStat = ps, true
		}
		e.Attendees = append(e.Attendees, ea)
	}

	if g.Reminders != nil {
		for _, r := range g.Reminders.Overrides {
			if r.Method == "popup" && r.Minutes >= 0 {
				e.Reminders = append(e.Reminders, event.Reminder{MinutesBefore: uint32(r.Minutes)})
			}
		}
	}

	if g.ExtendedProperties != nil {
		for k, v := range g.ExtendedProperties.Private {
			switch {
			case k == "caldirConferenceUrl":
				vv := v
				e.ConferenceURL = &vv
			case strings.HasPrefix(k, "caldirProp_"):
				e.CustomProperties = append(e.CustomProperties, event.Property{Name: strings.TrimPrefix(k, "caldirProp_"), Value: v})
			}
		}
	}
	if g.HangoutLink != "" && e.ConferenceURL == nil {
		e.ConferenceURL = &g.HangoutLink
	}

	if g.Updated != "" {
		if t, err := time.Parse(time.RFC3339, g.Updated); err == nil {
			e.Updated, e.HasUpdated = t, true
		}
	}
	if g.Sequence > 0 {
		e.Sequence = uint32(g.Sequence)
	}

	return e, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
