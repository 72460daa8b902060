package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/caldirhq/caldir/internal/event"
)

// wireTime is the JSON shape of an event.EventTime crossing the
// subprocess boundary: an RFC 3339-ish value plus enough metadata to
// reconstruct the right TimeKind.
type wireTime struct {
	Kind  string `json:"kind"` // "all_day", "floating", "utc", "zoned"
	Value string `json:"value"`
	TZID  string `json:"tzid,omitempty"`
}

func toWireTime(t event.EventTime) wireTime {
	switch t.Kind {
	case event.AllDay:
		return wireTime{Kind: "all_day", Value: t.Date.Format("2006-01-02")}
	case event.UTC:
		return wireTime{Kind: "utc", Value: t.Date.UTC().Format(time.RFC3339)}
	case event.Zoned:
		return wireTime{Kind: "zoned", Value: t.Date.Format("2006-01-02T15:04:05"), TZID: t.TZID}
	default:
		return wireTime{Kind: "floating", Value: t.Date.Format("2006-01-02T15:04:05")}
	}
}

func fromWireTime(w wireTime) (event.EventTime, error) {
	switch w.Kind {
	case "all_day":
		d, err := time.Parse("2006-01-02", w.Value)
		if err != nil {
			return event.EventTime{}, fmt.Errorf("bad all_day value %q: %w", w.Value, err)
		}
		return event.NewAllDay(d.Year(), d.Month(), d.Day()), nil
	case "utc":
		t, err := time.Parse(time.RFC3339, w.Value)
		if err != nil {
			return event.EventTime{}, fmt.Errorf("bad utc value %q: %w", w.Value, err)
		}
		return event.NewUTC(t), nil
	case "zoned":
		t, err := time.Parse("2006-01-02T15:04:05", w.Value)
		if err != nil {
			return event.EventTime{}, fmt.Errorf("bad zoned value %q: %w", w.Value, err)
		}
		return event.NewZoned(t, w.TZID), nil
	default:
		t, err := time.Parse("2006-01-02T15:04:05", w.Value)
		if err != nil {
			return event.EventTime{}, fmt.Errorf("bad floating value %q: %w", w.Value, err)
		}
		return event.NewFloating(t), nil
	}
}

type wireAttendee struct {
	CN       string `json:"cn,omitempty"`
	Email    string `json:"email"`
	PartStat string `json:"partstat,omitempty"`
}

type wireProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type wireEvent struct {
	UID          string         `json:"uid"`
	RecurrenceID *wireTime      `json:"recurrence_id,omitempty"`
	Start        wireTime       `json:"start"`
	End          wireTime       `json:"end"`
	Summary      string         `json:"summary"`
	Description  *string        `json:"description,omitempty"`
	Location     *string        `json:"location,omitempty"`
	Status       string         `json:"status"`
	Transparency string         `json:"transparency"`
	RRule        *string        `json:"rrule,omitempty"`
	EXDates      []wireTime     `json:"exdates,omitempty"`
	Organizer    *wireAttendee  `json:"organizer,omitempty"`
	Attendees    []wireAttendee `json:"attendees,omitempty"`
	Reminders    []uint32       `json:"reminders,omitempty"`
	ConferenceURL *string       `json:"conference_url,omitempty"`
	Updated      *string        `json:"updated,omitempty"`
	Sequence     uint32         `json:"sequence"`
	CustomProps  []wireProperty `json:"custom_properties,omitempty"`
}

// MarshalEvent serializes an event.Event for the wire protocol.
func MarshalEvent(e *event.Event) (json.RawMessage, error) {
	w := wireEvent{
		UID:          e.UID,
		Start:        toWireTime(e.Start),
		End:          toWireTime(e.End),
		Summary:      e.Summary,
		Description:  e.Description,
		Location:     e.Location,
		Status:       e.Status.String(),
		Transparency: e.Transparency.String(),
		RRule:        e.RRule,
		Sequence:     e.Sequence,
		ConferenceURL: e.ConferenceURL,
	}
	if e.RecurrenceID != nil {
		rid := toWireTime(*e.RecurrenceID)
		w.RecurrenceID = &rid
	}
	for _, ex := range e.EXDates {
		w.EXDates = append(w.EXDates, toWireTime(ex))
	}
	if e.Organizer != nil {
		w.Organizer = &wireAttendee{CN: e.Organizer.CN, Email: e.Organizer.Email}
	}
	for _, a := range e.Attendees {
		wa := wireAttendee{CN: a.CN, Email: a.Email}
		if a.HasPartStat {
			wa.PartStat = a.PartStat.ICSValue()
		}
		w.Attendees = append(w.Attendees, wa)
	}
	for _, r := range e.Reminders {
		w.Reminders = append(w.Reminders, r.MinutesBefore)
	}
	if e.HasUpdated {
		s := e.Updated.UTC().Format(time.RFC3339)
		w.Updated = &s
	}
	for _, p := range e.CustomProperties {
		w.CustomProps = append(w.CustomProps, wireProperty{Name: p.Name, Value: p.Value})
	}

	return json.Marshal(w)
}

// UnmarshalEvent parses a wire event back into event.Event.
func UnmarshalEvent(data json.RawMessage) (*event.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	start, err := fromWireTime(w.Start)
	if err != nil {
		return nil, fmt.Errorf("event %s: start: %w", w.UID, err)
	}
	end, err := fromWireTime(w.End)
	if err != nil {
		return nil, fmt.Errorf("event %s: end: %w", w.UID, err)
	}

	e := &event.Event{
		UID:           w.UID,
		Start:         start,
		End:           end,
		Summary:       w.Summary,
		Description:   w.Description,
		Location:      w.Location,
		RRule:         w.RRule,
		Sequence:      w.Sequence,
		ConferenceURL: w.ConferenceURL,
	}

	switch w.Status {
	case "TENTATIVE":
		e.Status = event.Tentative
	case "CANCELLED":
		e.Status = event.Cancelled
	default:
		e.Status = event.Confirmed
	}
	if w.Transparency == "TRANSPARENT" {
		e.Transparency = event.Transparent
	}

	if w.RecurrenceID != nil {
		rid, err := fromWireTime(*w.RecurrenceID)
		if err != nil {
			return nil, fmt.Errorf("event %s: recurrence_id: %w", w.UID, err)
		}
		e.RecurrenceID = &rid
	}
	for _, ex := range w.EXDates {
		t, err := fromWireTime(ex)
		if err != nil {
			return nil, fmt.Errorf("event %s: exdate: %w", w.UID, err)
		}
		e.EXDates = append(e.EXDates, t)
	}
	if w.Organizer != nil {
		e.Organizer = &event.Attendee{CN: w.Organizer.CN, Email: w.Organizer.Email}
	}
	for _, wa := range w.Attendees {
		a := event.Attendee{CN: wa.CN, Email: wa.Email}
		if ps, ok := event.ParseParticipationStatus(wa.PartStat); ok {
			a.PartStat = ps
			a.HasPartStat = true
		}
		e.Attendees = append(e.Attendees, a)
	}
	for _, m := range w.Reminders {
		e.Reminders = append(e.Reminders, event.Reminder{MinutesBefore: m})
	}
	if w.Updated != nil {
		t, err := time.Parse(time.RFC3339, *w.Updated)
		if err == nil {
			e.Updated = t
			e.HasUpdated = true
		}
	}
	for _, p := range w.CustomProps {
		e.CustomProperties = append(e.CustomProperties, event.Property{Name: p.Name, Value: p.Value})
	}

	return e, nil
}
