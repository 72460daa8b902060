// Command caldir-provider-caldav is the generic CalDAV backend caldir
// spawns as a subprocess (iCloud, Fastmail, or any other RFC 4791
// server), speaking the same JSON-over-stdio protocol as
// caldir-provider-google.
package main

import (
	"context"
	"log"
	"os"

	"github.com/caldirhq/caldir/internal/provider"
	"github.com/caldirhq/caldir/internal/provider/caldav"
)

func main() {
	log.SetFlags(0)
	if err := provider.Run(context.Background(), caldav.New(), os.Stdin, os.Stdout); err != nil {
		log.Fatalf("caldir-provider-caldav: %v", err)
	}
}
