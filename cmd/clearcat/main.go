// Package main provides the entry point for the clearcat CLI.
package main

import (
	"fmt"
	"os"

	"github.com/jmulder/clearcat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
