// Package main provides the entry point for the codememory CLI.
package main

import (
	"os"

	"github.com/kapillamba4/codememory/cmd/codememory/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
