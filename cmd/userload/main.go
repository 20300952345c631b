// Command userload loads a users CSV into a relational table and runs the
// report queries against it. See `userload --help`.
package main

import (
	"fmt"
	"os"

	"userload/internal/cli"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "userload/internal/storage/all"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "userload: %v\n", err)
		os.Exit(1)
	}
}
