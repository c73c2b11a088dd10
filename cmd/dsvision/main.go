// Package main is the entry point for the dsvision application.
package main

import (
	"os"

	"github.com/destenson/dsvision/cmd/dsvision/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
