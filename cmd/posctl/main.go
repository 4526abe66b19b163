package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/litepos/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "posctl: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
