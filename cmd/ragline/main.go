// Command ragline is the entry point for the retrieval-augmented answer
// service. It provides a CLI interface (via Cobra) and an HTTP server that
// exposes the query, feedback, and document management API.
package main

import (
	"fmt"
	"os"

	"github.com/ragline/ragline/cmd/ragline/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
