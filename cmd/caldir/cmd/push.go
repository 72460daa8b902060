package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/caldirhq/caldir/internal/sync"
)

var pushFrom, pushTo string
var pushForce bool

var pushCmd = &cobra.Command{
	Use:   "push [calendar]",
	Short: "Send local changes to the remote calendar",
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
			log.Printf("%s: local-only, nothing to push", name)
			return nil
		}
		window, err := parseWindow(pushFrom, pushTo)
		if err != nil {
			return err
		}
		res, err := sync.RunCalendar(context.Background(), dir, remoteConfig, remote, window, sync.PushOptions{Force: pushForce})
		if err != nil {
			return err
		}
		for _, r := range res.PushResult {
			if r.Err != nil {
				log.Printf("%s: push %s %s failed: %v", name, r.Kind, r.Identity, r.Err)
				continue
			}
			log.Printf("%s: push %s %s", name, r.Kind, r.Identity)
		}
		return nil
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushFrom, "from", "", "window start, RFC3339 (default now-30d)")
	pushCmd.Flags().StringVar(&pushTo, "to", "", "window end, RFC3339 (default now+180d)")
	pushCmd.Flags().BoolVar(&pushForce, "force", false, "allow a push that would delete every remote event")
}
