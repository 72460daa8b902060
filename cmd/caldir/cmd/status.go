package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caldirhq/caldir/internal/diff"
	"github.com/caldirhq/caldir/internal/event"
	"github.com/caldirhq/caldir/internal/store"
)

var statusFrom, statusTo string

var statusCmd = &cobra.Command{
	Use:   "status [calendar]",
	Short: "Show what a pull/push would change, without applying anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, dir, err := resolveCalendar(args)
		if err != nil {
			return err
		}
		remote, remoteConfig, err := remoteFor(dir)
		if err != nil {
			return err
		}
		cs, err := store.Load(dir)
		if err != nil {
			return err
		}

		window, err := parseWindow(statusFrom, statusTo)
		if err != nil {
			return err
		}

		remoteEvents := map[event.Identity]*event.Event{}
		if remote != nil {
			evs, err := remote.ListEvents(context.Background(), remoteConfig, window.From, window.To)
			if err != nil {
				return err
			}
			for _, e := range evs {
				remoteEvents[e.Identity()] = e
			}
		}

		local := make(map[event.Identity]diff.LocalEvent, len(cs.Events))
		for id, le := range cs.Events {
			local[id] = diff.LocalEvent{Event: le.Event, ModTime: le.ModTime}
		}

		d := diff.Compute(diff.Input{
			Local:  local,
			Remote: remoteEvents,
			Known:  cs.Known,
			Window: diff.Window{From: window.From, To: window.To},
		})
		if d.IsEmpty() {
			fmt.Println("up to date")
			return nil
		}
		for _, ed := range d.ToPull {
			fmt.Printf("pull %s %s\n", ed.Kind, ed.Identity)
		}
		for _, ed := range d.ToPush {
			fmt.Printf("push %s %s\n", ed.Kind, ed.Identity)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFrom, "from", "", "window start, RFC3339 (default now-30d)")
	statusCmd.Flags().StringVar(&statusTo, "to", "", "window end, RFC3339 (default now+180d)")
}
