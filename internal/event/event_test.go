package event

import (
	"testing"
	"time"
)

func TestIdentitySerialization(t *testing.T) {
	e := &Event{UID: "abc@ex"}
	if got := e.Identity().String(); got != "abc@ex" {
		t.Fatalf("expected bare uid, got %q", got)
	}

	rid := NewUTC(time.Date(2025, 3, 20, 15, 0, 0, 0, time.UTC))
	e.RecurrenceID = &rid
	want := "abc@ex__20250320T150000Z"
	if got := e.Identity().String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	parsed := ParseIdentity(want)
	if parsed.UID != "abc@ex" || parsed.RecurrenceID != "20250320T150000Z" {
		t.Fatalf("round trip failed: %+v", parsed)
	}
}

func TestParseIdentityWithoutRecurrence(t *testing.T) {
	id := ParseIdentity("bare-uid@example.com")
	if id.UID != "bare-uid@example.com" || id.HasRecurrenceID() {
		t.Fatalf("unexpected parse: %+v", id)
	}
}

func baseEvent() *Event {
	return &Event{
		UID:     "e1@ex",
		Start:   NewUTC(time.Date(2025, 3, 20, 15, 0, 0, 0, time.UTC)),
		End:     NewUTC(time.Date(2025, 3, 20, 16, 0, 0, 0, time.UTC)),
		Summary: "Standup",
	}
}

func TestContentEqualIgnoresUpdatedSequenceAndCustomProperties(t *testing.T) {
	a := baseEvent()
	b := baseEvent()

	a.Updated = time.Now()
	a.HasUpdated = true
	b.Updated = time.Now().Add(time.Hour)
	b.HasUpdated = true

	a.Sequence = 1
	b.Sequence = 5

	a.CustomProperties = []Property{{Name: "X-GOOGLE-EVENT-ID", Value: "1"}}
	b.CustomProperties = []Property{{Name: "X-GOOGLE-EVENT-ID", Value: "2"}}

	if !ContentEqual(a, b) {
		t.Fatalf("expected content-equal despite updated/sequence/custom_properties differing")
	}
}

func TestContentEqualDetectsSummaryChange(t *testing.T) {
	a := baseEvent()
	b := baseEvent()
	b.Summary = "Standup (moved)"

	if ContentEqual(a, b) {
		t.Fatalf("expected content mismatch on summary change")
	}
}

func TestContentEqualDetectsAttendeePartstatChange(t *testing.T) {
	a := baseEvent()
	b := baseEvent()
	a.Attendees = []Attendee{{Email: "x@y.com", HasPartStat: true, PartStat: Accepted}}
	b.Attendees = []Attendee{{Email: "x@y.com", HasPartStat: true, PartStat: Declined}}

	if ContentEqual(a, b) {
		t.Fatalf("expected content mismatch on attendee PARTSTAT change")
	}
}

func TestIsRecurringMaster(t *testing.T) {
	rule := "FREQ=WEEKLY;BYDAY=MO"
	master := baseEvent()
	master.RRule = &rule
	if !master.IsRecurringMaster() {
		t.Fatalf("expected master to be recognized as recurring")
	}

	rid := NewUTC(master.Start.Date)
	instance := baseEvent()
	instance.RRule = &rule
	instance.RecurrenceID = &rid
	if instance.IsRecurringMaster() {
		t.Fatalf("instance override must not be a recurring master")
	}
}

func TestValidateRRuleRejectsGarbage(t *testing.T) {
	if err := ValidateRRule("not a valid rrule", NewUTC(time.Now())); err == nil {
		t.Fatalf("expected error for invalid rrule")
	}
	if err := ValidateRRule("FREQ=DAILY;COUNT=5", NewUTC(time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEventTimeToUTCAllDay(t *testing.T) {
	d := NewAllDay(2025, time.March, 20)
	got := d.ToUTC()
	want := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
