package sync

import (
	"context"
	"time"

	"github.com/caldirhq/caldir/internal/caldirerr"
	"github.com/caldirhq/caldir/internal/diff"
	"github.com/caldirhq/caldir/internal/event"
	"github.com/caldirhq/caldir/internal/provider"
	"github.com/caldirhq/caldir/internal/store"
)

// Window bounds which remote events a calendar sync considers.
type Window struct {
	From time.Time
	To   time.Time
}

// Result is the outcome of running one calendar through a full
// pull-then-push cycle.
type Result struct {
	Dir        string
	PullResult []EventDiffResult
	PushResult []EventDiffResult
	Warnings   []string
}

// RunCalendar loads dir, fetches remote events for window from r,
// computes the diff once, applies the pull half, then applies the push
// half against the same diff — matching the pull-before-push ordering
// spec.md §5 requires within a single calendar.
func RunCalendar(ctx context.Context, dir string, remoteConfig map[string]string, r provider.Remote, window Window, opts PushOptions) (*Result, error) {
	cs, err := store.Load(dir)
	if err != nil {
		return nil, err
	}

	remoteEvents, err := r.ListEvents(ctx, remoteConfig, window.From, window.To)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindProvider, "list remote events", err)
	}

	input := diff.Input{
		Local:  localInput(cs.Events),
		Remote: indexByIdentity(remoteEvents),
		Known:  cs.Known,
		Window: diff.Window{From: window.From, To: window.To},
	}

	d := diff.Compute(input)

	res := &Result{Dir: dir, Warnings: cs.Warnings}
	res.PullResult = Pull(cs, d)
	pushResult, err := Push(ctx, cs, remoteConfig, r, d, opts)
	if err != nil {
		return res, err
	}
	res.PushResult = pushResult
	return res, nil
}

func localInput(events map[event.Identity]store.LocalEvent) map[event.Identity]diff.LocalEvent {
	out := make(map[event.Identity]diff.LocalEvent, len(events))
	for id, le := range events {
		out[id] = diff.LocalEvent{Event: le.Event, ModTime: le.ModTime}
	}
	return out
}

func indexByIdentity(events []*event.Event) map[event.Identity]*event.Event {
	out := make(map[event.Identity]*event.Event, len(events))
	for _, e := range events {
		out[e.Identity()] = e
	}
	return out
}
