package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/canonical/surrealair/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(cli.GetExitCode(err))
	}
}
