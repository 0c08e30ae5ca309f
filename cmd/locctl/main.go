// Command locctl imports, validates and inspects locations from the command line.
package main

import (
	"os"

	"github.com/couchcryptid/location-import-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
