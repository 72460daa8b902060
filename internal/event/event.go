// Package event defines the provider-neutral event model shared by the
// ICS codec, the calendar store, the diff engine, and every provider
// backend. Nothing in this package touches the filesystem or the
// network — it is pure data plus the content-equality relation that
// drives change detection.
package event

import (
	"fmt"
	"time"
)

// TimeKind distinguishes the four wire forms an EventTime can take, per
// RFC 5545 §3.3.4/§3.3.5.
type TimeKind int

const (
	// AllDay is a VALUE=DATE property (no time-of-day).
	AllDay TimeKind = iota
	// Floating is a local time with no timezone information.
	Floating
	// UTC is a time with a trailing "Z".
	UTC
	// Zoned is a time carrying an explicit TZID parameter.
	Zoned
)

func (k TimeKind) String() string {
	switch k {
	case AllDay:
		return "AllDay"
	case Floating:
		return "Floating"
	case UTC:
		return "Utc"
	case Zoned:
		return "Zoned"
	default:
		return "Unknown"
	}
}

// EventTime is a start/end/recurrence-id/exdate timestamp. Exactly one of
// the four constructors below should be used; the zero value is not a
// valid EventTime.
type EventTime struct {
	Kind TimeKind

	// Date holds:
	//   AllDay:   the calendar date (year/month/day, no wall-clock value)
	//   Floating: the naive wall-clock value with no meaningful location
	//   UTC:      the real UTC instant
	//   Zoned:    the naive wall-clock value in the zone named by TZID
	Date time.Time

	// TZID names the IANA zone for Zoned times only.
	TZID string
}

// NewAllDay builds an all-day EventTime from a calendar date.
func NewAllDay(year int, month time.Month, day int) EventTime {
	return EventTime{Kind: AllDay, Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// NewUTC builds a UTC EventTime.
func NewUTC(t time.Time) EventTime {
	return EventTime{Kind: UTC, Date: t.UTC()}
}

// NewFloating builds a floating (no timezone) EventTime.
func NewFloating(t time.Time) EventTime {
	return EventTime{Kind: Floating, Date: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// NewZoned builds a zoned EventTime carrying an IANA TZID.
func NewZoned(t time.Time, tzid string) EventTime {
	return EventTime{
		Kind: Zoned,
		Date: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC),
		TZID: tzid,
	}
}

// ToUTC resolves the EventTime to an absolute instant for comparison and
// sorting. AllDay resolves to midnight UTC on the date. Floating resolves
// by naive UTC interpretation (matching the original core's to_utc
// behavior). Zoned resolves its wall-clock time in TZID through the IANA
// zone database, falling back to naive UTC interpretation when TZID
// cannot be loaded.
func (e EventTime) ToUTC() time.Time {
	switch e.Kind {
	case AllDay:
		return time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, time.UTC)
	case UTC:
		return e.Date
	case Floating:
		return e.Date
	case Zoned:
		loc, err := time.LoadLocation(e.TZID)
		if err != nil {
			return e.Date
		}
		local := time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), e.Date.Hour(), e.Date.Minute(), e.Date.Second(), 0, loc)
		return local.UTC()
	default:
		return e.Date
	}
}

// WallClock returns the local wall-clock time used for filename
// assignment (spec.md §4.2): the zoned/floating local time, or the UTC
// time for UTC events.
func (e EventTime) WallClock() time.Time {
	return e.Date
}

// ICSValue formats the value portion of the property the way DTSTART
// would render it (no VALUE= or TZID= parameters) — this is also the
// string used inside an Identity for a recurrence-id.
func (e EventTime) ICSValue() string {
	switch e.Kind {
	case AllDay:
		return e.Date.Format("20060102")
	case UTC:
		return e.Date.Format("20060102T150405Z")
	case Floating, Zoned:
		return e.Date.Format("20060102T150405")
	default:
		return ""
	}
}

// Equal reports whether two EventTimes are the same wire value.
func (e EventTime) Equal(o EventTime) bool {
	if e.Kind != o.Kind {
		return false
	}
	if e.Kind == Zoned && e.TZID != o.TZID {
		return false
	}
	return e.Date.Equal(o.Date)
}

// EventStatus is RFC 5545 STATUS restricted to the VEVENT-legal values.
type EventStatus int

const (
	Confirmed EventStatus = iota
	Tentative
	Cancelled
)

func (s EventStatus) String() string {
	switch s {
	case Tentative:
		return "TENTATIVE"
	case Cancelled:
		return "CANCELLED"
	default:
		return "CONFIRMED"
	}
}

// Transparency is RFC 5545 TRANSP.
type Transparency int

const (
	Opaque Transparency = iota
	Transparent
)

func (t Transparency) String() string {
	if t == Transparent {
		return "TRANSPARENT"
	}
	return "OPAQUE"
}

// ParticipationStatus is RFC 5545 PARTSTAT for an ATTENDEE.
type ParticipationStatus int

const (
	Accepted ParticipationStatus = iota
	Declined
	PartTentative
	NeedsAction
)

// ICSValue renders the PARTSTAT wire value.
func (p ParticipationStatus) ICSValue() string {
	switch p {
	case Accepted:
		return "ACCEPTED"
	case Declined:
		return "DECLINED"
	case PartTentative:
		return "TENTATIVE"
	default:
		return "NEEDS-ACTION"
	}
}

// ParseParticipationStatus parses an ICS PARTSTAT value. ok is false for
// an unrecognized value, in which case the property should be dropped
// rather than defaulted.
func ParseParticipationStatus(s string) (ParticipationStatus, bool) {
	switch s {
	case "ACCEPTED":
		return Accepted, true
	case "DECLINED":
		return Declined, true
	case "TENTATIVE":
		return PartTentative, true
	case "NEEDS-ACTION":
		return NeedsAction, true
	default:
		return 0, false
	}
}

// Attendee is also used for the ORGANIZER property.
type Attendee struct {
	CN    string // display name, may be empty
	Email string

	// PartStat is only meaningful on ATTENDEE, never on ORGANIZER.
	PartStat    ParticipationStatus
	HasPartStat bool
}

// Reminder is a VALARM/ACTION=DISPLAY alarm.
type Reminder struct {
	MinutesBefore uint32
}

// Property is one entry of an ordered custom_properties mapping.
type Property struct {
	Name  string
	Value string
}

// Event is the provider-neutral event record described in spec.md §3.
type Event struct {
	UID          string
	RecurrenceID *EventTime

	Start EventTime
	End   EventTime

	Summary     string
	Description *string
	Location    *string

	Status        EventStatus
	Transparency  Transparency
	RRule         *string
	EXDates       []EventTime
	Organizer     *Attendee
	Attendees     []Attendee
	Reminders     []Reminder
	ConferenceURL *string

	Updated  time.Time
	HasUpdated bool
	Sequence uint32

	CustomProperties []Property
}

// IsRecurringMaster reports whether this event has an RRULE and is not
// itself an instance override.
func (e *Event) IsRecurringMaster() bool {
	return e.RRule != nil && e.RecurrenceID == nil
}

// Identity is the (uid, recurrence_id) pair used as the sole matching key
// across local, remote, and known-identity sets.
type Identity struct {
	UID          string
	RecurrenceID string // empty means "absent"
}

// HasRecurrenceID reports whether this identity names an instance
// override rather than a master/non-recurring event.
func (id Identity) HasRecurrenceID() bool {
	return id.RecurrenceID != ""
}

// String renders the identity in its serialized form: uid alone, or
// uid + "__" + recurrence_id when a recurrence-id is present.
func (id Identity) String() string {
	if id.RecurrenceID == "" {
		return id.UID
	}
	return id.UID + "__" + id.RecurrenceID
}

// ParseIdentity parses a serialized identity string back into its parts.
func ParseIdentity(s string) Identity {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '_' && s[i+1] == '_' {
			return Identity{UID: s[:i], RecurrenceID: s[i+2:]}
		}
	}
	return Identity{UID: s}
}

// Identity returns the matching key for this event.
func (e *Event) Identity() Identity {
	id := Identity{UID: e.UID}
	if e.RecurrenceID != nil {
		id.RecurrenceID = e.RecurrenceID.ICSValue()
	}
	return id
}

// ContentEqual implements the semantic-equality relation of spec.md §3:
// equal on every field except Updated, Sequence, and CustomProperties.
func ContentEqual(a, b *Event) bool {
	if a.UID != b.UID {
		return false
	}
	if !recurrenceIDEqual(a.RecurrenceID, b.RecurrenceID) {
		return false
	}
	if !a.Start.Equal(b.Start) || !a.End.Equal(b.End) {
		return false
	}
	if a.Summary != b.Summary {
		return false
	}
	if !strPtrEqual(a.Description, b.Description) {
		return false
	}
	if !strPtrEqual(a.Location, b.Location) {
		return false
	}
	if a.Status != b.Status {
		return false
	}
	if a.Transparency != b.Transparency {
		return false
	}
	if !strPtrEqual(a.RRule, b.RRule) {
		return false
	}
	if !exdatesEqual(a.EXDates, b.EXDates) {
		return false
	}
	if !attendeePtrEqual(a.Organizer, b.Organizer) {
		return false
	}
	if !attendeesEqual(a.Attendees, b.Attendees) {
		return false
	}
	if !remindersEqual(a.Reminders, b.Reminders) {
		return false
	}
	if !strPtrEqual(a.ConferenceURL, b.ConferenceURL) {
		return false
	}
	return true
}

func recurrenceIDEqual(a, b *EventTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func exdatesEqual(a, b []EventTime) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func attendeePtrEqual(a, b *Attendee) bool {
	if a == nil || b == nil {
		return a == b
	}
	return attendeeEqual(*a, *b)
}

func attendeeEqual(a, b Attendee) bool {
	return a.CN == b.CN && a.Email == b.Email && a.HasPartStat == b.HasPartStat &&
		(!a.HasPartStat || a.PartStat == b.PartStat)
}

func attendeesEqual(a, b []Attendee) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !attendeeEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func remindersEqual(a, b []Reminder) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer for logging, rendering the event as
// "summary (identity)".
func (e *Event) String() string {
	return fmt.Sprintf("%s (%s)", e.Summary, e.Identity())
}
