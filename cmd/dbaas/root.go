package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose     bool
	logLevel    string
	historyPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "dbaas",
		Short:         "dbaas runs reversible database maintenance workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.historyPath, "history", "", "Path to the task history file")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newStepsCmd())
	cmd.AddCommand(newHistoryCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
