// Package command assembles the buildtrace root cobra.Command and the
// GlobalParams every subcommand is built from.
package command

import (
	"github.com/spf13/cobra"
)

// GlobalParams are the persistent flags every subcommand receives,
// threaded through as a subcommand-factory closure argument rather than
// package globals so subcommands stay independently testable.
type GlobalParams struct {
	// ConfFilePath holds the value of the --config flag. No subcommand
	// reads the file it names; configuration comes from defaults,
	// environment variables and subcommand flags.
	ConfFilePath string
}

// SubcommandFactory builds one subcommand from the shared GlobalParams.
type SubcommandFactory func(*GlobalParams) *cobra.Command

// MakeRootCommand assembles the root command from a set of subcommand
// factories, each given the same GlobalParams instance.
func MakeRootCommand(factories ...SubcommandFactory) *cobra.Command {
	globalParams := &GlobalParams{}

	root := &cobra.Command{
		Use:           "buildtrace",
		Short:         "Trace filesystem and process activity of a command tree via eBPF",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&globalParams.ConfFilePath, "config", "", "path to buildtrace.yaml")

	for _, factory := range factories {
		root.AddCommand(factory(globalParams))
	}
	return root
}
