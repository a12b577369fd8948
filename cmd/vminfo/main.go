package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kubev2v/vminfo/internal/cli"
	"github.com/kubev2v/vminfo/pkg/log"
)

func main() {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger := log.InitLog(level)
	defer func() { _ = logger.Sync() }()

	undo := zap.ReplaceGlobals(logger)
	defer undo()

	command := NewVminfoCommand(level)
	if err := command.Execute(); err != nil {
		zap.S().Errorf("%v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

// NewVminfoCommand returns the root command. Run without a subcommand it
// behaves like "vminfo report".
func NewVminfoCommand(level zap.AtomicLevel) *cobra.Command {
	o := cli.NewReportOptions(level)
	cmd := &cobra.Command{
		Use:           "vminfo [flags] [options]",
		Short:         "vminfo reports CPU, memory and disk utilization of vSphere VMs.",
		RunE:          o.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	o.Bind(cmd.Flags())

	cmd.AddCommand(cli.NewCmdReport(level))
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
