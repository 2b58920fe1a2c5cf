package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vinigracindo/database-as-a-service/internal/app/workflow"
	"github.com/vinigracindo/database-as-a-service/internal/logger"
	"github.com/vinigracindo/database-as-a-service/internal/shell"
)

type stepsOptions struct {
	configPath string
	jsonOutput bool
}

func newStepsCmd() *cobra.Command {
	opts := &stepsOptions{}

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List the steps of a workflow in run order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfigPath(opts.configPath); err != nil {
				return err
			}
			return runSteps(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to workflow file")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

type stepJSON struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Label    string `json:"label"`
}

func runSteps(cmd *cobra.Command, opts *stepsOptions) error {
	svc := workflow.NewService(shell.NewExec(shell.Options{}), logger.Nop())
	prepared, err := svc.Prepare(opts.configPath)
	if err != nil {
		return newCommandError("list steps", fmt.Sprintf("loading workflow %q", opts.configPath), err, "Fix the workflow errors shown above and try again.")
	}

	descs := prepared.Describe()
	if opts.jsonOutput {
		out := make([]stepJSON, 0, len(descs))
		for i, d := range descs {
			out = append(out, stepJSON{Position: i + 1, ID: string(d.ID), Label: d.Label})
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "#\tID\tLABEL")
	for i, d := range descs {
		fmt.Fprintf(writer, "%d\t%s\t%s\n", i+1, d.ID, d.Label)
	}
	return writer.Flush()
}
