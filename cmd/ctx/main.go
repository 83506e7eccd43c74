// Package main provides the entry point for the ctx CLI.
package main

import (
	"os"

	"github.com/ctxhq/ctx/cmd/ctx/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
