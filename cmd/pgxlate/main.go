// Command pgxlate translates typed expression documents into PostgreSQL SQL.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pgxlate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
