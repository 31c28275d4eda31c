// Package main is the entry point for the agentfleet CLI.
package main

import (
	"os"

	"github.com/agentfleet-io/agentfleet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
