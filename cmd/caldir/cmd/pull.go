package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/caldirhq/caldir/internal/sync"
)

var pullFrom, pullTo string

var pullCmd = &cobra.Command{
	Use:   "pull [calendar]",
	Short: "Fetch remote changes into the local calendar directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, dir, err := resolveCalendar(args)
		if err != nil {
			return err
		}
		remote, remoteConfig, err := remoteFor(dir)
		if err != nil {
			return err
		}
		if remote == nil {
			log.Printf("%s: local-only, nothing to pull", name)
			return nil
		}
		window, err := parseWindow(pullFrom, pullTo)
		if err != nil {
			return err
		}
		res, err := sync.RunCalendar(context.Background(), dir, remoteConfig, remote, window, sync.PushOptions{})
		if err != nil {
			return err
		}
		for _, r := range res.PullResult {
			log.Printf("%s: pull %s %s", name, r.Kind, r.Identity)
		}
		return nil
	},
}

func init() {
	pullCmd.Flags().StringVar(&pullFrom, "from", "", "window start, RFC3339 (default now-30d)")
	pullCmd.Flags().StringVar(&pullTo, "to", "", "window end, RFC3339 (default now+180d)")
}
