// Command sharenodectl is an operator CLI for a sharenoded instance: it
// opens the same lease database directly (this is a single-node admin
// tool, not a remote API client) to list and create accounts and to
// inspect or force the accounting crawler.
package main

import (
	"fmt"
	"os"

	"github.com/public/tahoe-lafs/cmd/sharenodectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
