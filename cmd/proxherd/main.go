// Package main is the entry point for the proxherd supervisor CLI.
package main

import (
	"fmt"
	"os"

	"github.com/proxherd/proxherd/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
