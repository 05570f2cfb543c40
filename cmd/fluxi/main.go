package main

import (
	"os"

	"github.com/rshade/fluxi/internal/cli"
	"github.com/rshade/fluxi/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and returns the process exit code.
func run() int {
	root := cli.NewRootCmd(version.String())
	return exitCode(root.Execute())
}

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
