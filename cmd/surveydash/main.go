// Package main provides the entry point for the surveydash CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/surveydash/cmd/surveydash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
