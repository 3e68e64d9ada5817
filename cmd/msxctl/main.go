// Command msxctl runs and inspects EPANET-MSX water quality simulations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the msxctl version.
var Version = "0.1.0"

// Global flags. Each one, when set, overrides the run file.
var (
	configPath  string
	backendFlag string
	libraryFlag string
	moduleFlag  string
	fsRootFlag  string
	logLevel    string
	logFormat   string
)

var rootCmd = &cobra.Command{
	Use:     "msxctl",
	Short:   "Run and inspect EPANET-MSX water quality simulations",
	Long: `msxctl drives the EPANET-MSX multi-species water quality engine.

The engine is either a shared library loaded with dlopen (--backend native)
or a wasm32-wasi build run in-process (--backend wasm). Runs are described
by a YAML run file (--config) or by flags and an input file argument.

Examples:
  msxctl inspect net1.msx
  msxctl run net1.msx --output net1.out --report
  msxctl run -c net1.yaml
  msxctl step -c net1.yaml -i
  msxctl errors 503 519`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Run file (YAML)")
	pf.StringVar(&backendFlag, "backend", "", "Engine backend: native or wasm")
	pf.StringVar(&libraryFlag, "library", "", "Shared library for the native backend")
	pf.StringVar(&moduleFlag, "module", "", "Wasm module for the wasm backend")
	pf.StringVar(&fsRootFlag, "fs-root", "", "Host directory mounted at / for the wasm backend")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: console or json (default: console on a terminal)")

	rootCmd.AddCommand(runCmd, stepCmd, inspectCmd, errorsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
