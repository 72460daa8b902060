// Command caldir keeps a calendar as a directory of RFC 5545 .ics files
// and syncs it against a remote calendar service through the
// caldir-provider-* subprocess protocol.
package main

import (
	"fmt"
	"os"

	"github.com/caldirhq/caldir/cmd/caldir/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
