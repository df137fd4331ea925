// Package main is the entry point for the cortex-grants CLI binary.
package main

import (
	"os"

	cli "cortex-grants/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
