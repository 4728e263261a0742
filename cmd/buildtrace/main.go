// Command buildtrace attaches an eBPF tracer to a command tree rooted
// at a given parent process and streams its filesystem and
// process-lineage activity.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/buildtrace/buildtrace/cmd/buildtrace/command"
	buildtraceconfigcmd "github.com/buildtrace/buildtrace/cmd/buildtrace/subcommands/config"
	"github.com/buildtrace/buildtrace/cmd/buildtrace/subcommands/ebpf"
	"github.com/buildtrace/buildtrace/cmd/buildtrace/subcommands/ps"
	"github.com/buildtrace/buildtrace/cmd/buildtrace/subcommands/run"
)

func main() {
	root := command.MakeRootCommand(
		run.MakeCommand,
		ps.MakeCommand,
		ebpf.MakeCommand,
		buildtraceconfigcmd.MakeCommand,
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
