package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/caldirhq/caldir/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events [calendar]",
	Short: "List the local events in a calendar",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, dir, err := resolveCalendar(args)
		if err != nil {
			return err
		}
		cs, err := store.Load(dir)
		if err != nil {
			return err
		}

		events := make([]store.LocalEvent, 0, len(cs.Events))
		for _, le := range cs.Events {
			events = append(events, le)
		}
		sort.Slice(events, func(i, j int) bool {
			return events[i].Event.Start.ToUTC().Before(events[j].Event.Start.ToUTC())
		})

		for _, le := range events {
			fmt.Printf("%s\t%s\t%s\n", le.Event.Start.ToUTC().Format("2006-01-02 15:04"), le.Filename, le.Event.Summary)
		}
		return nil
	},
}
