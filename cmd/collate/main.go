// Package main provides the collate CLI, which assembles training batches
// from safetensors samples through a configured pipeline.
package main

import (
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "v0.0.1-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd(version)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
