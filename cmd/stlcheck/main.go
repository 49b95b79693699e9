package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/philipparndt/stlcheck/version"
)

// exitUsage is returned for invalid flags, arguments or configuration
const exitUsage = 2

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stlcheck",
		Short: "Validate 3D-printable STL files in CI",
		Long: `stlcheck inspects STL files for structural defects such as open
boundaries, non-manifold edges, degenerate facets and inverted normals, and
checks whether each part is stored in the orientation that minimizes
unsupported overhang.`,
		Version:       version.GetFullVersion(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(newCheckCmd(), newInfoCmd(), newWatchCmd(), newVersionCmd())
	return rootCmd
}

// exitError carries a process exit status out of a command
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitUsage
}
