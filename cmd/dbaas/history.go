package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vinigracindo/database-as-a-service/internal/history"
)

type historyOptions struct {
	jsonOutput bool
	limit      int
}

func newHistoryCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded workflow runs",
	}

	cmd.AddCommand(newHistoryListCmd(root))
	cmd.AddCommand(newHistoryShowCmd(root))
	cmd.AddCommand(newHistoryRemoveCmd(root))
	return cmd
}

func newHistoryListCmd(root *rootFlags) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(root)
			if err != nil {
				return err
			}
			return renderHistoryList(cmd, store.List(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func newHistoryShowCmd(root *rootFlags) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show the progress log of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(root)
			if err != nil {
				return err
			}
			rec, err := store.Get(args[0])
			if err != nil {
				return newCommandError("show task", fmt.Sprintf("looking up %q", args[0]), err, "Run 'dbaas history list' to see recorded task ids.")
			}
			if opts.jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(rec)
			}
			return renderHistoryRecord(cmd, rec)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func newHistoryRemoveCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a recorded run from the history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(root)
			if err != nil {
				return err
			}
			rec, err := store.Get(args[0])
			if err != nil {
				return newCommandError("remove task", fmt.Sprintf("looking up %q", args[0]), err, "Run 'dbaas history list' to see recorded task ids.")
			}
			if rec.Status == history.StatusRunning {
				return newCommandError("remove task", fmt.Sprintf("task %s is still running", rec.ID), fmt.Errorf("refusing to remove a running task"), "Wait for the run to finish, then try again.")
			}
			if err := store.Remove(rec.ID); err != nil {
				return newCommandError("remove task", fmt.Sprintf("removing %s", rec.ID), err, "Check history file permissions and try again.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s from %s\n", rec.ID, store.Path())
			return nil
		},
	}
}

func openHistory(root *rootFlags) (*history.Store, error) {
	set, err := resolveSettings(root, nil, os.Getenv)
	if err != nil {
		return nil, newCommandError("open history", "determining history path", err, "Ensure your HOME directory is set correctly or pass --history.")
	}
	store, err := history.NewStore(set.HistoryPath)
	if err != nil {
		return nil, newCommandError("open history", fmt.Sprintf("loading %s", set.HistoryPath), err, "Check history file permissions and try again.")
	}
	return store, nil
}

func renderHistoryList(cmd *cobra.Command, records []history.Record, opts *historyOptions) error {
	if opts.limit > 0 && len(records) > opts.limit {
		records = records[:opts.limit]
	}

	if opts.jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nRun 'dbaas run -c <workflow.yaml>' to record your first run.")
		return nil
	}

	useUnicode := supportsUnicode(cmd.OutOrStdout())
	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tSTATUS\tSTARTED")
	for _, rec := range records {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			shortID(rec.ID),
			valueOrFallback(rec.Name, "(no name)"),
			formatStatus(rec.Status, useUnicode),
			formatRelativeTime(rec.CreatedAt),
		)
	}
	return writer.Flush()
}

func renderHistoryRecord(cmd *cobra.Command, rec history.Record) error {
	status := lipgloss.NewStyle().Bold(true).Foreground(rec.Status.Color()).Render(rec.Status.String())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task:     %s\n", rec.ID)
	fmt.Fprintf(out, "Name:     %s\n", valueOrFallback(rec.Name, "(no name)"))
	fmt.Fprintf(out, "Status:   %s\n", status)
	if rec.RunStatus != "" {
		fmt.Fprintf(out, "Workflow: %s (run %s)\n", rec.RunStatus, rec.RunID)
	}
	if len(rec.Arguments) > 0 {
		fmt.Fprintf(out, "Args:     %s\n", strings.Join(rec.Arguments, " "))
	}
	fmt.Fprintf(out, "Started:  %s\n", rec.CreatedAt.Format(time.RFC3339))
	if rec.FinishedAt != nil {
		fmt.Fprintf(out, "Finished: %s (%s)\n", rec.FinishedAt.Format(time.RFC3339), rec.FinishedAt.Sub(rec.CreatedAt).Truncate(time.Millisecond))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, valueOrFallback(rec.Details, "(no details)"))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func supportsUnicode(writer any) bool {
	if file, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

func formatStatus(status history.Status, useUnicode bool) string {
	if useUnicode {
		return fmt.Sprintf("%s %s", status.Icon(), status.String())
	}
	return fmt.Sprintf("[%s]", status.String())
}

func formatRelativeTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}

	delta := time.Since(ts)
	if delta < time.Minute {
		return "just now"
	}
	if delta < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(delta.Minutes()))
	}
	if delta < 24*time.Hour {
		return fmt.Sprintf("%d hours ago", int(delta.Hours()))
	}

	return fmt.Sprintf("%d days ago", int(delta.Hours()/24))
}

func valueOrFallback(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
