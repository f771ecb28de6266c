// Command cargo-quickinstall installs prebuilt binaries of rust crates,
// building them from source when no prebuilt binary is available.
//
// It's meant to be run as a cargo subcommand:
//
//	cargo quickinstall ripgrep
package main

import (
	"context"
	"os"

	"github.com/fatih/color"
)

func main() {
	cmd := newRootCmd(os.LookupEnv)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
