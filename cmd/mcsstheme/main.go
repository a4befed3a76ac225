// Package main is the entry point for the mcsstheme application.
package main

import (
	"os"

	"github.com/jmylchreest/mcsstheme/cmd/mcsstheme/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
