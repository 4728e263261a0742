// Package config prints the effective, fully-resolved configuration —
// defaults overlaid by environment and flags.
package config

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/buildtrace/buildtrace/cmd/buildtrace/command"
	buildtraceconfig "github.com/buildtrace/buildtrace/pkg/buildtrace/config"
)

// MakeCommand builds the "config" subcommand.
func MakeCommand(_ *command.GlobalParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective buildtrace configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Flags(), cmd.OutOrStdout())
		},
	}
	return cmd
}

func run(flags *pflag.FlagSet, out io.Writer) error {
	v := buildtraceconfig.New(flags)
	cfg := buildtraceconfig.Load(v)
	fmt.Fprintf(out, "root_ppid: %d\n", cfg.RootPPID)
	fmt.Fprintf(out, "bpf_object_dirs: %v\n", cfg.BPFObjectDirs)
	fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
	fmt.Fprintf(out, "metrics_addr: %s\n", cfg.MetricsAddr)
	fmt.Fprintf(out, "error_poll_interval: %s\n", cfg.ErrorPollInterval)
	return nil
}
