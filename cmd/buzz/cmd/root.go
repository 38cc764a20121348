// Package cmd is Buzz's single-binary CLI, a cobra command tree
// collapsed from the teacher's cmd/dwscript subcommand layout (run,
// compile, version) into root-level flags, since Buzz's CLI surface is
// the small one spec.md §6 specifies: `buzz [flags] <script> [args...]`.
package cmd

import (
	"fmt"
	"os"

	"github.com/buzzlang/buzz/pkg/buzz"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags, teacher convention).
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	runTests    bool
	checkOnly   bool
	showVersion bool
	libPaths    []string
)

var rootCmd = &cobra.Command{
	Use:   "buzz [flags] <script> [args...]",
	Short: "Buzz language interpreter",
	Long: `buzz is the reference interpreter for the Buzz scripting language:
a small, statically typed, object-oriented language compiled to bytecode
and run on a stack VM with precise garbage collection.`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runRoot,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.Flags().BoolVarP(&runTests, "test", "t", false, "run every test \"...\" { } block")
	rootCmd.Flags().BoolVarP(&checkOnly, "check", "c", false, "check the script without running it")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print version and exit")
	rootCmd.Flags().StringArrayVarP(&libPaths, "libpath", "L", nil, "add a library search directory (repeatable)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runRoot(_ *cobra.Command, args []string) error {
	if showVersion {
		fmt.Printf("buzz version %s\n", Version)
		fmt.Printf("commit %s, built %s\n", GitCommit, BuildDate)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("no script given; usage: buzz [flags] <script> [args...]")
	}

	script := args[0]
	scriptArgs := args[1:]

	var opts []buzz.Option
	for _, lp := range libPaths {
		opts = append(opts, buzz.WithLibPath(lp))
	}
	engine, _ := buzz.New(opts...)

	src, err := os.ReadFile(script)
	if err != nil {
		return fmt.Errorf("reading %s: %w", script, err)
	}

	switch {
	case checkOnly:
		return runCheck(engine, string(src), script)
	case runTests:
		return runTestMode(engine, string(src), script)
	default:
		return runScript(engine, script, scriptArgs)
	}
}
