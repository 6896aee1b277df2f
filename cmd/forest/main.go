// Package main provides the entry point for the forest CLI.
package main

import (
	"os"

	"github.com/foresthq/forest/cmd/forest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
