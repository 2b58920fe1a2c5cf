package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

const waitDelay = 2 * time.Second

// Output captures what a script printed and how it exited.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Primary returns stderr if present, otherwise stdout.
func (o Output) Primary() string {
	if o.Stderr != "" {
		return o.Stderr
	}
	return o.Stdout
}

// Runner executes a shell script on a host. An empty host means the local
// machine.
type Runner interface {
	Run(ctx context.Context, host, script string) (Output, error)
}

// Options configures an Exec runner.
type Options struct {
	// Shell runs local scripts. Defaults to sh.
	Shell string
	// SSH is the binary used for remote hosts. Defaults to ssh.
	SSH string
	// SSHArgs are passed before the host. Defaults to BatchMode=yes.
	SSHArgs []string
	// Env is appended to the parent environment for local scripts.
	Env map[string]string
	// Stdout and Stderr also receive the streamed output when set.
	Stdout io.Writer
	Stderr io.Writer
}

// Exec runs scripts through os/exec, locally or over ssh.
type Exec struct {
	opts Options
}

var _ Runner = (*Exec)(nil)

// NewExec builds an Exec runner with defaults applied.
func NewExec(opts Options) *Exec {
	if opts.Shell == "" {
		opts.Shell = "sh"
	}
	if opts.SSH == "" {
		opts.SSH = "ssh"
	}
	if opts.SSHArgs == nil {
		opts.SSHArgs = []string{"-o", "BatchMode=yes"}
	}
	return &Exec{opts: opts}
}

// IsLocal reports whether host refers to the machine running the workflow.
func IsLocal(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Command builds the exec.Cmd used for script on host.
func (e *Exec) Command(ctx context.Context, host, script string) *exec.Cmd {
	if IsLocal(host) {
		cmd := exec.CommandContext(ctx, e.opts.Shell, "-c", script)
		cmd.Env = buildEnv(e.opts.Env)
		return cmd
	}

	args := append(append([]string{}, e.opts.SSHArgs...), strings.TrimSpace(host), script)
	return exec.CommandContext(ctx, e.opts.SSH, args...)
}

// Run executes script on host. A non-zero exit status is reported through
// Output.ExitCode with a nil error; err is set only when the script could not
// run to completion.
func (e *Exec) Run(ctx context.Context, host, script string) (Output, error) {
	if strings.TrimSpace(script) == "" {
		return Output{}, fmt.Errorf("empty script")
	}

	cmd := e.Command(ctx, host, script)
	cmd.Stdout = e.opts.Stdout
	cmd.Stderr = e.opts.Stderr
	cmd.WaitDelay = waitDelay

	out, err := RunStreaming(cmd)
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		out.ExitCode = -1
		return out, fmt.Errorf("%w: %v", ctxErr, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	out.ExitCode = -1
	return out, err
}

// RunStreaming runs cmd while collecting its output. Writers already set on
// cmd keep receiving the stream.
func RunStreaming(cmd *exec.Cmd) (Output, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	if cmd.Stdout != nil {
		cmd.Stdout = io.MultiWriter(cmd.Stdout, &stdoutBuf)
	} else {
		cmd.Stdout = &stdoutBuf
	}
	if cmd.Stderr != nil {
		cmd.Stderr = io.MultiWriter(cmd.Stderr, &stderrBuf)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()

	return Output{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}, err
}

func buildEnv(custom map[string]string) []string {
	env := os.Environ()
	for k, v := range custom {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
