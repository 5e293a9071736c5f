// Package main implements the cfquery CLI. It presents path search
// results over control flow graphs produced by an external binary
// analysis engine; the engine itself, and any graphical rendering of
// exported graphs, live outside this tool.
package main

import (
	"os"

	"cfquery/cmd/cfquery/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
