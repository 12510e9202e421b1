// Package main is the cutout command itself.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"go.viam.com/cutout/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		//nolint:errcheck
		color.New(color.Bold, color.FgRed).Fprint(os.Stderr, "Error: ")
		//nolint:errcheck
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
