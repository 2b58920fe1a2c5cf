package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vinigracindo/database-as-a-service/internal/logger"
	"github.com/vinigracindo/database-as-a-service/internal/model"
	"github.com/vinigracindo/database-as-a-service/internal/shell"
	"github.com/vinigracindo/database-as-a-service/internal/step"
	"github.com/vinigracindo/database-as-a-service/internal/steps"
	dbaaserrors "github.com/vinigracindo/database-as-a-service/pkg/errors"
)

// Config describes one command step from a workflow file.
type Config struct {
	ID    model.StepID
	Label string
	Do    string
	Undo  string
	// Host overrides the payload host when set.
	Host    string
	Timeout time.Duration
}

// Step runs a shell script forward and an optional script to compensate.
type Step struct {
	cfg    Config
	runner shell.Runner
	logger *logger.Logger
}

var _ step.Step = (*Step)(nil)

// New creates a command step.
func New(cfg Config, runner shell.Runner, log *logger.Logger) *Step {
	return &Step{cfg: cfg, runner: runner, logger: log.With("step", string(cfg.ID))}
}

// Factory returns a step.Factory building a fresh Step per resolution.
func Factory(cfg Config, runner shell.Runner, log *logger.Logger) step.Factory {
	return func() step.Step {
		return New(cfg, runner, log)
	}
}

func (s *Step) String() string {
	if s.cfg.Label != "" {
		return s.cfg.Label
	}
	return fmt.Sprintf("Running %s...", s.cfg.ID)
}

// Do runs the forward script. Any failure is recorded as DBAAS_0020 and
// reported as a business failure.
func (s *Step) Do(ctx context.Context, wc *model.Context) (bool, error) {
	if err := s.run(ctx, wc, s.cfg.Do); err != nil {
		step.Capture(wc, step.CodeCommand, err)
		s.logger.Error(err, "command failed")
		return false, nil
	}
	return true, nil
}

// Undo runs the compensating script, if any. Failures are recorded and
// logged but never raised, so the unwind continues.
func (s *Step) Undo(ctx context.Context, wc *model.Context) (bool, error) {
	if strings.TrimSpace(s.cfg.Undo) == "" {
		return true, nil
	}
	s.logger.Info("Running undo...")
	if err := s.run(ctx, wc, s.cfg.Undo); err != nil {
		step.Capture(wc, step.CodeCommand, err)
		s.logger.Warn(fmt.Sprintf("undo command failed: %v", err))
		return false, nil
	}
	return true, nil
}

func (s *Step) run(ctx context.Context, wc *model.Context, script string) error {
	var data *model.Payload
	if wc != nil {
		data = wc.Data
	}

	host := s.cfg.Host
	if host == "" {
		host, _ = model.Lookup(data, steps.HostKey)
	}
	host = steps.Expand(host, data)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	out, err := s.runner.Run(ctx, host, steps.Expand(script, data))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", s.cfg.Timeout, err)
		}
		return &dbaaserrors.ExecutionError{StepID: string(s.cfg.ID), Host: host, ExitCode: out.ExitCode, Stderr: out.Stderr, Err: err}
	}
	if out.ExitCode != 0 {
		return &dbaaserrors.ExecutionError{StepID: string(s.cfg.ID), Host: host, ExitCode: out.ExitCode, Stderr: out.Primary()}
	}
	s.logger.Debug(fmt.Sprintf("command output: %s", out.Stdout))
	return nil
}
