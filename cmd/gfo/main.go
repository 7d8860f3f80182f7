// Package main implements the go-flow-obfuscator CLI (gfo).
// It provides commands for flattening function control flow, injecting
// opaque predicates, and protecting whole files.
package main

import (
	"os"

	"github.com/kairos-sec/go-flow-obfuscator/cmd/gfo/commands"
	"github.com/kairos-sec/go-flow-obfuscator/internal/log"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.Default().Error("command failed", "error", err)
		os.Exit(1)
	}
}
