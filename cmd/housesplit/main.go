// Package main is the entry point for the housesplit CLI.
package main

import (
	"os"

	"github.com/mmynk/housesplit/cmd/housesplit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
