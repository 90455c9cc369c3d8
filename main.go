// Package main hosts the main function for the subproc utility.
package main

import (
	"github.com/subproc-io/subproc/commands"

	_ "github.com/subproc-io/subproc/commands/run"
	_ "github.com/subproc-io/subproc/commands/version"
)

func main() {
	commands.Run(nil)
}
