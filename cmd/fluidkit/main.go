// Command fluidkit opens a window and drives the simulation loop. Argument
// parsing and subcommands live in cmd/fluidkit/cmd (spec Component L).
package main

import (
	"github.com/gekko3d/fluidkit/cmd/fluidkit/cmd"
)

func main() {
	cmd.Execute()
}
