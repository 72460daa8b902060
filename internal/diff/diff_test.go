package diff

import (
	"testing"
	"time"

	"github.com/caldirhq/caldir/internal/event"
)

func evt(uid, summary string) *event.Event {
	return &event.Event{
		UID:     uid,
		Start:   event.NewUTC(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)),
		End:     event.NewUTC(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)),
		Summary: summary,
	}
}

func TestFirstPullCreatesLocalFromUnknownRemote(t *testing.T) {
	id := event.Identity{UID: "r1"}
	remote := evt("r1", "Standup")

	d := Compute(Input{
		Local:  map[event.Identity]LocalEvent{},
		Remote: map[event.Identity]*event.Event{id: remote},
		Known:  map[event.Identity]bool{},
	})

	if len(d.ToPull) != 1 || d.ToPull[0].Kind != Create {
		t.Fatalf("expected one pull-create, got %+v", d.ToPull)
	}
	if len(d.ToPush) != 0 {
		t.Fatalf("expected no push, got %+v", d.ToPush)
	}
}

func TestUnknownLocalPushesCreate(t *testing.T) {
	id := event.Identity{UID: "l1"}
	local := evt("l1", "Standup")

	d := Compute(Input{
		Local:  map[event.Identity]LocalEvent{id: {Event: local}},
		Remote: map[event.Identity]*event.Event{},
		Known:  map[event.Identity]bool{},
	})

	if len(d.ToPush) != 1 || d.ToPush[0].Kind != Create {
		t.Fatalf("expected one push-create, got %+v", d.ToPush)
	}
}

func TestKnownLocalGoneFromRemotePullsDelete(t *testing.T) {
	id := event.Identity{UID: "l1"}
	local := evt("l1", "Standup")

	d := Compute(Input{
		Local:  map[event.Identity]LocalEvent{id: {Event: local}},
		Remote: map[event.Identity]*event.Event{},
		Known:  map[event.Identity]bool{id: true},
	})

	if len(d.ToPull) != 1 || d.ToPull[0].Kind != Delete {
		t.Fatalf("expected one pull-delete, got %+v", d.ToPull)
	}
}

func TestKnownLocalOutsideWindowGoneFromRemoteIsNotDeleted(t *testing.T) {
	id := event.Identity{UID: "l1"}
	local := evt("l1", "Standup") // starts 2025-01-01T09:00:00Z

	d := Compute(Input{
		Local:  map[event.Identity]LocalEvent{id: {Event: local}},
		Remote: map[event.Identity]*event.Event{},
		Known:  map[event.Identity]bool{id: true},
		Window: Window{
			From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	})

	if len(d.ToPull) != 0 {
		t.Fatalf("expected no pull-delete for event outside sync window, got %+v", d.ToPull)
	}
}

func TestKnownRemoteGoneFromLocalPushesDelete(t *testing.T) {
	id := event.Identity{UID: "r1"}
	remote := evt("r1", "Standup")

	d := Compute(Input{
		Local:  map[event.Identity]LocalEvent{},
		Remote: map[event.Identity]*event.Event{id: remote},
		Known:  map[event.Identity]bool{id: true},
	})

	if len(d.ToPush) != 1 || d.ToPush[0].Kind != Delete {
		t.Fatalf("expected one push-delete, got %+v", d.ToPush)
	}
}

func TestContentDifferLocalNewerPushesUpdate(t *testing.T) {
	id := event.Identity{UID: "e1"}
	local := evt("e1", "Standup (renamed)")
	remote := evt("e1", "Standup")
	remote.Updated = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	remote.HasUpdated = true

	d := Compute(Input{
		Local:  map[event.Identity]LocalEvent{id: {Event: local, ModTime: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC).Unix()}},
		Remote: map[event.Identity]*event.Event{id: remote},
		Known:  map[event.Identity]bool{id: true},
	})

	if len(d.ToPush) != 1 || d.ToPush[0].Kind != Update {
		t.Fatalf("expected one push-update, got push=%+v pull=%+v", d.ToPush, d.ToPull)
	}
	if len(d.ToPull) != 0 {
		t.Fatalf("expected no pull, got %+v", d.ToPull)
	}
}

func TestContentDifferRemoteNewerPullsUpdate(t *testing.T) {
	id := event.Identity{UID: "e1"}
	local := evt("e1", "Standup")
	remote := evt("e1", "Standup (renamed remotely)")
	remote.Updated = time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	remote.HasUpdated = true

	d := Compute(Input{
		Local:  map[event.Identity]LocalEvent{id: {Event: local, ModTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix()}},
		Remote: map[event.Identity]*event.Event{id: remote},
		Known:  map[event.Identity]bool{id: true},
	})

	if len(d.ToPull) != 1 || d.ToPull[0].Kind != Update {
		t.Fatalf("expected one pull-update, got pull=%+v push=%+v", d.ToPull, d.ToPush)
	}
}

func TestContentEqualDespiteMetadataProducesNoDiff(t *testing.T) {
	id := event.Identity{UID: "e1"}
	local := evt("e1", "Standup")
	remote := evt("e1", "Standup")
	remote.Updated = time.Now()
	remote.HasUpdated = true
	remote.Sequence = 9
	remote.CustomProperties = []event.Property{{Name: "X-GOOGLE-EVENT-ID", Value: "abc"}}

	d := Compute(Input{
		Local:  map[event.Identity]LocalEvent{id: {Event: local}},
		Remote: map[event.Identity]*event.Event{id: remote},
		Known:  map[event.Identity]bool{id: true},
	})

	if !d.IsEmpty() {
		t.Fatalf("expected empty diff for content-equal events, got push=%+v pull=%+v", d.ToPush, d.ToPull)
	}
}

func TestRecurrenceOverrideIsDistinctIdentity(t *testing.T) {
	master := event.Identity{UID: "series"}
	rid := event.NewUTC(time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC))
	override := event.Identity{UID: "series", RecurrenceID: rid.ICSValue()}

	masterEvent := evt("series", "Standup")
	rrule := "FREQ=WEEKLY"
	masterEvent.RRule = &rrule

	overrideEvent := evt("series", "Standup (moved)")
	overrideEvent.RecurrenceID = &rid

	d := Compute(Input{
		Local: map[event.Identity]LocalEvent{
			master:   {Event: masterEvent},
			override: {Event: overrideEvent},
		},
		Remote: map[event.Identity]*event.Event{},
		Known:  map[event.Identity]bool{},
	})

	if len(d.ToPush) != 2 {
		t.Fatalf("expected master and override to diff independently, got %+v", d.ToPush)
	}
}

func TestSameKindDiffsOrderedByIdentityNotStartTime(t *testing.T) {
	zID := event.Identity{UID: "zzz"}
	aID := event.Identity{UID: "aaa"}

	zEvent := evt("zzz", "Standup")
	zEvent.Start = event.NewUTC(time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC))
	aEvent := evt("aaa", "Standup")
	aEvent.Start = event.NewUTC(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))

	d := Compute(Input{
		Local: map[event.Identity]LocalEvent{
			zID: {Event: zEvent},
			aID: {Event: aEvent},
		},
		Remote: map[event.Identity]*event.Event{},
		Known:  map[event.Identity]bool{},
	})

	if len(d.ToPush) != 2 {
		t.Fatalf("expected two push-creates, got %+v", d.ToPush)
	}
	if d.ToPush[0].Identity.String() != "aaa" || d.ToPush[1].Identity.String() != "zzz" {
		t.Fatalf("expected same-kind diffs ordered lexicographically by identity (aaa before zzz despite later start time), got %+v", d.ToPush)
	}
}
