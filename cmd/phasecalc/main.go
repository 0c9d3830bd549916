package main

import (
	"fmt"
	"os"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/cli"
)

// version is stamped at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run keeps main itself trivial; errors and exit codes live here.
func run() error {
	return cli.Execute(version)
}
