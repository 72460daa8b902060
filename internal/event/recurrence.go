package event

import (
	"fmt"

	"github.com/teambition/rrule-go"
)

// ValidateRRule parses an RRULE value with rrule-go and reports a parse
// error without ever materializing occurrences — caldir stores and
// diffs the raw RRULE string (spec.md §3, "rrule (optional string)");
// expansion into concrete instances is a provider/remote concern, not
// the core's, so this is used only to reject a malformed rule at write
// time (store.CalendarStore.Write) before it round-trips through an ICS
// file no reader can parse.
func ValidateRRule(rule string, dtstart EventTime) error {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return fmt.Errorf("invalid RRULE %q: %w", rule, err)
	}
	r.DTStart(dtstart.ToUTC())
	return nil
}
