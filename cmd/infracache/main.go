// ABOUTME: CLI entrypoint for infracache: HTTP server plus offline commands over the SQLite store.
// ABOUTME: Loads .env before anything else so INFRACACHE_* defaults apply to every command.
package main

import (
	"fmt"
	"os"

	"github.com/2389-research/infracache/server"
)

var version = "dev"

func main() {
	if _, err := server.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
