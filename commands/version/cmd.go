// Package version implements the "subproc version" command.
package version

import (
	"encoding/json"
	"fmt"

	"github.com/subproc-io/subproc/commands"
)

// Version and revision are injected with -ldflags at release time.
var (
	version  = ""
	revision = ""
)

func init() {
	commands.Register("version", cmd{})
}

type cmd struct{}

func (cmd) Summary() string {
	return "Display version information"
}

func (cmd) Usage() string {
	return `
subproc version will display version information.

usage: subproc version [options]

options:
  -j --json     Print as JSON.
  -h --help     Show this screen.
`
}

func (cmd) Execute(arguments map[string]interface{}) bool {
	result := map[string]string{
		"version":  orUnknown(version),
		"revision": orUnknown(revision),
	}

	if arguments["--json"].(bool) {
		data, _ := json.Marshal(result)
		fmt.Println(string(data))
	} else {
		fmt.Printf("version:  %s\n", result["version"])
		fmt.Printf("revision: %s\n", result["revision"])
	}

	return true
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
