// Package main provides the entry point for the sessionwatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/sessionwatch/cmd/sessionwatch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
