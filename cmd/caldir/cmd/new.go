package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/caldirhq/caldir/internal/event"
	"github.com/caldirhq/caldir/internal/store"
)

var (
	newCalendar string
	newStart    string
	newEnd      string
	newAllDay   bool
)

var newCmd = &cobra.Command{
	Use:   "new <summary>",
	Short: "Create a new local event file in a calendar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, dir, err := resolveCalendarNamed(newCalendar)
		if err != nil {
			return err
		}
		if newStart == "" {
			return fmt.Errorf("--start is required")
		}

		start, end, err := parseEventTimes(newStart, newEnd, newAllDay)
		if err != nil {
			return err
		}

		cs, err := store.Load(dir)
		if err != nil {
			return err
		}

		e := &event.Event{
			UID:     uuid.NewString() + "@caldir",
			Start:   start,
			End:     end,
			Summary: args[0],
			Status:  event.Confirmed,
		}
		filename, err := cs.Write(e)
		if err != nil {
			return err
		}
		fmt.Println(filename)
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newCalendar, "calendar", "", "calendar to add the event to")
	newCmd.Flags().StringVar(&newStart, "start", "", "start time, RFC3339, or YYYY-MM-DD with --all-day")
	newCmd.Flags().StringVar(&newEnd, "end", "", "end time (default: start + 1h, or the same day with --all-day)")
	newCmd.Flags().BoolVar(&newAllDay, "all-day", false, "create an all-day event")
}

func resolveCalendarNamed(name string) (string, string, error) {
	if name == "" {
		return resolveCalendar(nil)
	}
	return resolveCalendar([]string{name})
}

func parseEventTimes(startFlag, endFlag string, allDay bool) (event.EventTime, event.EventTime, error) {
	if allDay {
		start, err := time.Parse("2006-01-02", startFlag)
		if err != nil {
			return event.EventTime{}, event.EventTime{}, fmt.Errorf("parse --start: %w", err)
		}
		end := start.AddDate(0, 0, 1)
		if endFlag != "" {
			end, err = time.Parse("2006-01-02", endFlag)
			if err != nil {
				return event.EventTime{}, event.EventTime{}, fmt.Errorf("parse --end: %w", err)
			}
		}
		return event.NewAllDay(start.Year(), start.Month(), start.Day()),
			event.NewAllDay(end.Year(), end.Month(), end.Day()), nil
	}

	start, err := time.Parse(time.RFC3339, startFlag)
	if err != nil {
		return event.EventTime{}, event.EventTime{}, fmt.Errorf("parse --start: %w", err)
	}
	end := start.Add(time.Hour)
	if endFlag != "" {
		end, err = time.Parse(time.RFC3339, endFlag)
		if err != nil {
			return event.EventTime{}, event.EventTime{}, fmt.Errorf("parse --end: %w", err)
		}
	}
	return event.NewUTC(start.UTC()), event.NewUTC(end.UTC()), nil
}
