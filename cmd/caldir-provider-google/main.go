// Command caldir-provider-google is the Google Calendar backend caldir
// spawns as a subprocess: it reads one JSON request line from stdin,
// performs the matching Google Calendar API call, and writes one JSON
// response line to stdout, per the provider protocol in
// internal/provider.
package main

import (
	"context"
	"log"
	"os"

	"github.com/caldirhq/caldir/internal/provider"
	"github.com/caldirhq/caldir/internal/provider/google"
)

func main() {
	log.SetFlags(0)
	if err := provider.Run(context.Background(), google.New(), os.Stdin, os.Stdout); err != nil {
		log.Fatalf("caldir-provider-google: %v", err)
	}
}
