// Package main provides the entry point for the forkhold CLI tool.
package main

import "github.com/forkhold/forkhold/cmd/forkhold/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
