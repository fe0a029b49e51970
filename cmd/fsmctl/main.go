// Command fsmctl trains, inspects and runs text-token automaton models
// stored as JSON files.
package main

import (
	"fmt"
	"os"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fsmctl: %v\n", err)
		os.Exit(1)
	}
}
