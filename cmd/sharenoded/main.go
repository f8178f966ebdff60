// Command sharenoded runs the storage accounting core as a standalone
// process: the share/bucket filesystem layer, the lease database, the
// accounting crawler, and the read-only admin HTTP surface.
package main

import (
	"fmt"
	"os"

	"github.com/public/tahoe-lafs/cmd/sharenoded/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
