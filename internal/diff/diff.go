// Package diff computes the three-way diff between a calendar's local
// events, its remote events, and the set of identities already known to
// have been synced at least once, per the caldir sync algorithm: one
// diff holds both the pull (remote → local) and the push (local →
// remote) operations, and the pull half is applied in full before the
// push half.
package diff

import (
	"sort"
	"time"

	"github.com/caldirhq/caldir/internal/event"
)

// Kind is the operation a single EventDiff represents.
type Kind int

const (
	Create Kind = iota
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "+"
	case Update:
		return "~"
	default:
		return "-"
	}
}

// EventDiff is one change to apply, in one direction.
type EventDiff struct {
	Identity event.Identity
	Kind     Kind
	Old      *event.Event
	New      *event.Event
}

// Event returns whichever of New/Old is present, preferring New — the
// side a caller cares about for logging.
func (d EventDiff) Event() *event.Event {
	if d.New != nil {
		return d.New
	}
	return d.Old
}

// CalendarDiff is the full result of comparing one calendar's local and
// remote state.
type CalendarDiff struct {
	ToPush []EventDiff
	ToPull []EventDiff
}

func (d CalendarDiff) IsEmpty() bool {
	return len(d.ToPush) == 0 && len(d.ToPull) == 0
}

// Input bundles everything the diff needs: the local events (keyed by
// identity, with the local file's mtime for tie-breaking), the remote
// events as returned by the provider, the set of identities already
// known to have synced before, and the window the remote was fetched
// with (used to decide whether a remote-side disappearance is trusted).
type Input struct {
	Local  map[event.Identity]LocalEvent
	Remote map[event.Identity]*event.Event
	Known  map[event.Identity]bool
	Window Window
}

// Window bounds which local events a remote-side disappearance is
// trusted for. A zero Window (both fields zero) is unbounded — every
// event is considered in range.
type Window struct {
	From time.Time
	To   time.Time
}

// LocalEvent is the subset of store.LocalEvent the diff engine needs,
// duplicated here so this package has no dependency on internal/store.
type LocalEvent struct {
	Event   *event.Event
	ModTime int64 // unix seconds; 0 means unknown
}

// Compute implements the three-way diff: identities present locally but
// not remotely, remotely but not locally, and present on both sides but
// content-different.
func Compute(in Input) CalendarDiff {
	var d CalendarDiff

	for id, local := range in.Local {
		if _, onRemote := in.Remote[id]; onRemote {
			continue
		}
		if in.Known[id] {
			if isInSyncRange(local.Event, in.Window) {
				d.ToPull = append(d.ToPull, EventDiff{Identity: id, Kind: Delete, Old: local.Event})
			}
		} else {
			d.ToPush = append(d.ToPush, EventDiff{Identity: id, Kind: Create, New: local.Event})
		}
	}

	for id, remote := range in.Remote {
		if _, onLocal := in.Local[id]; onLocal {
			continue
		}
		if in.Known[id] {
			d.ToPush = append(d.ToPush, EventDiff{Identity: id, Kind: Delete, Old: remote})
		} else {
			d.ToPull = append(d.ToPull, EventDiff{Identity: id, Kind: Create, New: remote})
		}
	}

	for id, local := range in.Local {
		remote, onRemote := in.Remote[id]
		if !onRemote {
			continue
		}
		if event.ContentEqual(local.Event, remote) {
			continue
		}
		if localIsNewer(local, remote) {
			d.ToPush = append(d.ToPush, EventDiff{Identity: id, Kind: Update, Old: remote, New: local.Event})
		} else {
			d.ToPull = append(d.ToPull, EventDiff{Identity: id, Kind: Update, Old: local.Event, New: remote})
		}
	}

	sortByStart(d.ToPush)
	sortByStart(d.ToPull)
	return d
}

// isInSyncRange reports whether e's start falls inside window, so a
// remote-side disappearance outside the currently-synced range is not
// mistaken for a deletion. A zero Window is unbounded, and an event
// with no resolvable start is treated as in-range, matching
// is_in_sync_range's None case in the original implementation.
func isInSyncRange(e *event.Event, window Window) bool {
	if e == nil {
		return false
	}
	if window.From.IsZero() && window.To.IsZero() {
		return true
	}
	start := e.Start.ToUTC()
	if start.IsZero() {
		return true
	}
	if !window.From.IsZero() && start.Before(window.From) {
		return false
	}
	if !window.To.IsZero() && start.After(window.To) {
		return false
	}
	return true
}

// localIsNewer breaks a content-differs tie by comparing the local
// file's mtime against the remote event's `updated` timestamp. A local
// event with no mtime, or a remote event with no `updated` value, always
// loses the comparison to the side that does carry a timestamp.
func localIsNewer(local LocalEvent, remote *event.Event) bool {
	if local.ModTime == 0 {
		return false
	}
	if !remote.HasUpdated {
		return true
	}
	return time.Unix(local.ModTime, 0).UTC().After(remote.Updated.UTC())
}

// sortByStart orders diffs deterministically: Delete before Update before
// Create, then lexicographically by identity within a kind, matching the
// order a batch apply should use so deletions free up any filename a
// create might need to reuse.
func sortByStart(diffs []EventDiff) {
	sort.SliceStable(diffs, func(i, j int) bool {
		if diffs[i].Kind != diffs[j].Kind {
			return kindOrder(diffs[i].Kind) < kindOrder(diffs[j].Kind)
		}
		return diffs[i].Identity.String() < diffs[j].Identity.String()
	})
}

func kindOrder(k Kind) int {
	switch k {
	case Delete:
		return 0
	case Update:
		return 1
	default:
		return 2
	}
}
