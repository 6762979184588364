// Command archspec checks declarative architectural invariants against a
// codebase: module boundaries, forbidden content patterns, naming and
// test-colocation conventions, and package dependency restrictions.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "archspec"
)

// errViolations signals a clean run that found error-severity violations.
// The result is already on stdout; the process just exits nonzero.
var errViolations = errors.New("violations found")

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errViolations) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Architectural invariant checker",
		Long: `Archspec enforces declarative architectural invariants against a
codebase: module boundaries, forbidden content patterns, naming and
test-colocation conventions, and package dependency restrictions.

Rules live in .archspec/invariants.yml as a plain, append-friendly
YAML list. Checks degrade instead of failing: an unreadable file
yields no facts, a malformed rule entry is skipped and counted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.repo, "repo", "", "Repository path (default: configured or current directory)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		scanCmd(opts),
		checkCmd(opts),
		graphCmd(opts),
		inferCmd(opts),
		inspectCmd(opts),
		reportCmd(opts),
		historyCmd(opts),
		watchCmd(opts),
		initCmd(opts),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}
