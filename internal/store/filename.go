package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/caldirhq/caldir/internal/event"
)

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases a summary, collapses runs of non-alphanumeric
// characters into a single hyphen, trims leading/trailing hyphens, and
// truncates to 60 characters. An empty result becomes "untitled".
func slugify(summary string) string {
	s := strings.ToLower(summary)
	s = slugNonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.Trim(s[:60], "-")
	}
	if s == "" {
		s = "untitled"
	}
	return s
}

// baseFilename computes the deterministic, collision-free-of-suffix
// filename stem for an event, per the three cases: recurring master,
// all-day, timed.
func baseFilename(e *event.Event) string {
	slug := slugify(e.Summary)
	switch {
	case e.IsRecurringMaster():
		return fmt.Sprintf("_recurring__%s", slug)
	case e.Start.Kind == event.AllDay:
		return fmt.Sprintf("%s__%s", e.Start.WallClock().Format("2006-01-02"), slug)
	default:
		return fmt.Sprintf("%sT%s__%s", e.Start.WallClock().Format("2006-01-02"), e.Start.WallClock().Format("1504"), slug)
	}
}

// maxSlugCollisionAttempts bounds the "-2", "-3", ... suffix search so a
// pathological calendar (hundreds of identically-named events at the
// same instant) fails loudly instead of looping forever.
const maxSlugCollisionAttempts = 100

// assignFilename returns the ".ics" filename to use for e, given the set
// of filenames already taken by other events in the directory. exists
// receives a candidate stem (without extension) and reports whether it
// is already used by a *different* identity.
func assignFilename(e *event.Event, exists func(stem string) bool) (string, error) {
	stem := baseFilename(e)
	if !exists(stem) {
		return stem + ".ics", nil
	}
	for n := 2; n <= maxSlugCollisionAttempts; n++ {
		candidate := fmt.Sprintf("%s-%d", stem, n)
		if !exists(candidate) {
			return candidate + ".ics", nil
		}
	}
	return "", fmt.Errorf("assign filename for %s: %d collisions on stem %q", e.Identity(), maxSlugCollisionAttempts, stem)
}
