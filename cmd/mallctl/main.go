// Package main is the entry point for mallctl, the operations tool that
// ships next to the API server. It runs schema migrations, seeds demo data
// and mints service tokens and plugin license keys.
package main

import (
	"os"

	"github.com/jiffoo/mall/cmd/mallctl/internal/commands"
)

func main() {
	if err := commands.NewRootCommand(commands.Options{}).Execute(); err != nil {
		os.Exit(1)
	}
}
