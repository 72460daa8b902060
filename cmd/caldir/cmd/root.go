// Package cmd wires caldir's cobra command tree onto the sync core.
// Command bodies stay thin: flag parsing and global config resolution
// live here, everything else is a call into internal/store,
// internal/sync, or internal/provider.
package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/caldirhq/caldir/internal/config"
)

var (
	configPath      string
	calendarDirFlag string
	defaultCalFlag  string
	verbose         bool

	cfg *config.Config
)

// RootCmd is caldir's top-level cobra command.
var RootCmd = &cobra.Command{
	Use:   "caldir",
	Short: "Keep a calendar as a directory of .ics files, synced with a remote",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetFlags(0)
		if !verbose {
			log.SetOutput(os.Stderr)
		}

		if configPath == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			configPath = p
		}

		loaded, err := config.Load(configPath, calendarDirFlag, defaultCalFlag)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to global config.toml (default ~/.config/caldir/config.toml)")
	RootCmd.PersistentFlags().StringVar(&calendarDirFlag, "calendar-dir", "", "root directory holding calendar subdirectories (overrides config.toml)")
	RootCmd.PersistentFlags().StringVar(&defaultCalFlag, "default-calendar", "", "calendar name to use when a command is invoked without one")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	RootCmd.AddCommand(pullCmd, pushCmd, statusCmd, newCmd, eventsCmd)
}
