// Package main provides the entry point for the searchlab CLI.
package main

import (
	"os"

	"github.com/searchlab-dev/searchlab/cmd/searchlab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
