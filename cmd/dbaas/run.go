package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vinigracindo/database-as-a-service/internal/app/workflow"
	"github.com/vinigracindo/database-as-a-service/internal/config"
	"github.com/vinigracindo/database-as-a-service/internal/engine"
	"github.com/vinigracindo/database-as-a-service/internal/history"
	"github.com/vinigracindo/database-as-a-service/internal/logger"
	"github.com/vinigracindo/database-as-a-service/internal/model"
	"github.com/vinigracindo/database-as-a-service/internal/shell"
	"github.com/vinigracindo/database-as-a-service/internal/tui"
)

type runOptions struct {
	ConfigPath     string
	NoHistory      bool
	NonInteractive bool
}

var runCmdRunner = runWorkflow

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}
	var plain bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow, undoing the attempted steps if one fails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.NonInteractive = plain || !term.IsTerminal(int(os.Stdout.Fd()))

			if err := validateConfigPath(opts.ConfigPath); err != nil {
				return err
			}

			return runCmdRunner(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to workflow file")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record the run in the task history")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of the interactive view")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runWorkflow(cmd *cobra.Command, root *rootFlags, opts runOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var logWriter io.Writer = cmd.ErrOrStderr()
	if !opts.NonInteractive && !root.verbose {
		// Log lines would tear the interactive view; the history keeps the progress.
		logWriter = io.Discard
	}

	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return newCommandError("run", fmt.Sprintf("loading workflow %q", opts.ConfigPath), err, "Fix the workflow errors shown above and try again.")
	}

	set, err := resolveSettings(root, cfg, os.Getenv)
	if err != nil {
		return newCommandError("run", "resolving settings", err, "Ensure your HOME directory is set correctly or pass --history.")
	}

	log, err := logger.New(logger.Options{Level: set.LogLevel, HumanReadable: true, Writer: logWriter, Component: "dbaas"})
	if err != nil {
		return newCommandError("run", "creating logger", err, "Use one of debug, info, warn or error.")
	}

	shellOpts := shell.Options{}
	if opts.NonInteractive && root.verbose {
		shellOpts.Stdout = cmd.ErrOrStderr()
		shellOpts.Stderr = cmd.ErrOrStderr()
	}
	svc := workflow.NewService(shell.NewExec(shellOpts), log)
	prepared, err := svc.PrepareConfig(opts.ConfigPath, cfg)
	if err != nil {
		return newCommandError("run", "wiring workflow steps", err, "Check the step definitions in the workflow file.")
	}

	var handles []engine.TaskHandle
	var task *history.Task
	if !opts.NoHistory {
		store, err := history.NewStore(set.HistoryPath)
		if err != nil {
			return newCommandError("run", "opening task history", err, "Check history file permissions or pass --no-history.")
		}
		task, err = store.Start(prepared.Config.Name, os.Args[1:])
		if err != nil {
			return newCommandError("run", "recording task", err, "Check history file permissions or pass --no-history.")
		}
		handles = append(handles, task)
	}

	state := tui.NewModel(prepared.Config.Name, prepared.Describe(), opts.NonInteractive, cancel)

	var res *model.Result
	if opts.NonInteractive {
		handles = append(handles, &lineTask{out: cmd.OutOrStdout()}, tui.NewBridge(&tui.Inline{Model: &state}))
		res, err = svc.Execute(ctx, workflow.Request{Prepared: prepared, Task: engine.Tasks(handles...)})
		if err != nil {
			return err
		}
		dispatch(&state, tui.DoneMsg{Result: res})
		fmt.Fprintln(cmd.OutOrStdout(), state.View())
	} else {
		program := tea.NewProgram(state, tea.WithOutput(cmd.OutOrStdout()))
		done := make(chan error, 1)
		go func() {
			_, runErr := program.Run()
			done <- runErr
		}()

		handles = append(handles, tui.NewBridge(program))
		res, err = svc.Execute(ctx, workflow.Request{Prepared: prepared, Task: engine.Tasks(handles...)})
		if err != nil {
			program.Quit()
			<-done
			return err
		}
		program.Send(tui.DoneMsg{Result: res})
		if programErr := <-done; programErr != nil {
			log.Error(programErr, "interactive view failed")
		}
	}

	taskID := ""
	if task != nil {
		taskID = task.ID()
		if err := task.Finish(res.RunID, res.Status); err != nil {
			log.Error(err, "could not record task result")
		}
	}

	if !res.Succeeded() {
		return &workflowError{result: res, taskID: taskID}
	}
	return nil
}

func dispatch(state *tui.Model, msg tea.Msg) {
	(&tui.Inline{Model: state}).Send(msg)
}

// lineTask prints every progress line, for output that is not a terminal.
type lineTask struct {
	out io.Writer
}

func (l *lineTask) UpdateDetails(details string, _ bool) error {
	_, err := fmt.Fprintln(l.out, details)
	return err
}
