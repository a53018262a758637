// Command jobsearch searches job fixtures offline.
package main

import (
	"os"

	"github.com/tbourn/go-jobsearch-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
