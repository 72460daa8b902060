// Package sync drives one calendar through a full pull-then-push cycle:
// the diff is computed once, its pull half fully completes and is
// flushed to disk, and then its push half is applied.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/caldirhq/caldir/internal/caldirerr"
	"github.com/caldirhq/caldir/internal/diff"
	"github.com/caldirhq/caldir/internal/event"
	"github.com/caldirhq/caldir/internal/provider"
	"github.com/caldirhq/caldir/internal/store"
)

// Outcome records what happened to one identity during an apply pass.
type Outcome int

const (
	Applied Outcome = iota
	Failed
	Refused
)

// EventDiffResult pairs an EventDiff with what happened when it was
// applied — the partial-failure record spec.md §5 requires: a batch
// keeps going past a single failed operation, and only successes update
// the known-identity set.
type EventDiffResult struct {
	diff.EventDiff
	Outcome Outcome
	Err     error
}

// retryDelays is the fixed exponential backoff schedule for RateLimited
// and Network provider errors: 1s, 2s, 4s, then give up.
var retryDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// callWithRetry runs fn, retrying it after each of retryDelays as long as
// the returned error is provider.IsRetryable.
func callWithRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !provider.IsRetryable(err) {
			return err
		}
		if attempt >= len(retryDelays) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelays[attempt]):
		}
	}
}

// Pull applies every ToPull change to the local store, then flushes the
// known-identity set. A per-item failure is recorded and skipped; the
// pass keeps going.
func Pull(cs *store.CalendarStore, d diff.CalendarDiff) []EventDiffResult {
	results := make([]EventDiffResult, 0, len(d.ToPull))

	for _, ed := range d.ToPull {
		res := EventDiffResult{EventDiff: ed}
		switch ed.Kind {
		case diff.Create, diff.Update:
			if _, err := cs.Write(ed.New); err != nil {
				res.Outcome, res.Err = Failed, err
				log.Printf("Warning: pull %s %s: %v", ed.Kind, ed.Identity, err)
				results = append(results, res)
				continue
			}
			cs.Known[ed.Identity] = true
			res.Outcome = Applied
		case diff.Delete:
			if err := cs.Delete(ed.Identity); err != nil {
				res.Outcome, res.Err = Failed, err
				log.Printf("Warning: pull delete %s: %v", ed.Identity, err)
				results = append(results, res)
				continue
			}
			delete(cs.Known, ed.Identity)
			res.Outcome = Applied
		}
		results = append(results, res)
	}

	if err := cs.FlushKnown(); err != nil {
		log.Printf("Warning: flush known_event_ids: %v", err)
	}
	return results
}

// PushOptions controls the bulk-delete safety rail.
type PushOptions struct {
	// Force bypasses BulkDeleteRefused.
	Force bool
}

// Push applies every ToPush change against remote via r, then updates
// the local store with whatever the remote handed back (its
// authoritative id, `updated`, and `sequence`) and flushes known.
//
// If every ToPush entry is a Delete and the local calendar has no events
// at all, the whole push is refused unless opts.Force is set — a config
// mistake that makes every local file disappear must never be allowed to
// wipe out a remote calendar.
func Push(ctx context.Context, cs *store.CalendarStore, remoteConfig map[string]string, r provider.Remote, d diff.CalendarDiff, opts PushOptions) ([]EventDiffResult, error) {
	if isBulkDelete(d, cs) && !opts.Force {
		return nil, caldirerr.New(caldirerr.KindBulkDeleteRefused,
			fmt.Sprintf("push would delete all %d known event(s) while the local calendar is empty; re-run with force to proceed", len(d.ToPush)))
	}

	results := make([]EventDiffResult, 0, len(d.ToPush))

	for _, ed := range d.ToPush {
		res := EventDiffResult{EventDiff: ed}
		var err error

		switch ed.Kind {
		case diff.Create:
			var created *event.Event
			err = callWithRetry(ctx, func() error {
				var callErr error
				created, callErr = r.CreateEvent(ctx, remoteConfig, ed.New)
				return callErr
			})
			if err == nil {
				if _, writeErr := cs.Write(created); writeErr != nil {
					err = writeErr
				} else {
					cs.Known[created.Identity()] = true
				}
			}
		case diff.Update:
			var updated *event.Event
			err = callWithRetry(ctx, func() error {
				var callErr error
				updated, callErr = r.UpdateEvent(ctx, remoteConfig, ed.New)
				return callErr
			})
			if err == nil {
				if _, writeErr := cs.Write(updated); writeErr != nil {
					err = writeErr
				} else {
					cs.Known[updated.Identity()] = true
				}
			}
		case diff.Delete:
			err = callWithRetry(ctx, func() error {
				return r.DeleteEvent(ctx, remoteConfig, ed.Identity.String())
			})
			if err == nil {
				delete(cs.Known, ed.Identity)
			}
		}

		if err != nil {
			res.Outcome, res.Err = Failed, err
			log.Printf("Warning: push %s %s: %v", ed.Kind, ed.Identity, err)
		} else {
			res.Outcome = Applied
		}
		results = append(results, res)
	}

	if err := cs.FlushKnown(); err != nil {
		log.Printf("Warning: flush known_event_ids: %v", err)
	}
	return results, nil
}

func isBulkDelete(d diff.CalendarDiff, cs *store.CalendarStore) bool {
	if len(d.ToPush) == 0 {
		return false
	}
	for _, ed := range d.ToPush {
		if ed.Kind != diff.Delete {
			return false
		}
	}
	return len(cs.Events) == 0
}
