// Command stepwise runs feature files against registered step definitions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stepwise/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stepwise:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
