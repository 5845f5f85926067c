// Package main provides the categorycheck binary entry point.
// Categorycheck is a pre-publish CI gate: it validates that every category
// a workspace package declares exists in the crates.io taxonomy.
//
// Exit codes: 0 when all declared categories resolve, 1 when metadata
// problems were found, 2 when the registry response itself could not be
// classified (or any other fatal failure).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Local overrides (registry URL, delay) may live in a .env file;
	// a missing file is not an error.
	_ = godotenv.Load()

	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		var problems *problemsError
		if errors.As(err, &problems) {
			fmt.Fprintln(os.Stderr, problems.Error())
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}
