// Package main provides the entry point for the readstash CLI.
package main

import (
	"os"

	"github.com/readstash/readstash/cmd/readstash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
