// Command celquery translates CEL filters into relational queries.
package main

import (
	"context"
	"os"

	"github.com/satishbabariya/celquery/cmd/celquery/commands"
	"github.com/satishbabariya/celquery/internal/ui"
)

func main() {
	if err := commands.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		ui.PrintError("%v", err)
		os.Exit(1)
	}
}
