// Package volume holds steps that move a database between NFS exports.
package volume

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinigracindo/database-as-a-service/internal/logger"
	"github.com/vinigracindo/database-as-a-service/internal/model"
	"github.com/vinigracindo/database-as-a-service/internal/shell"
	"github.com/vinigracindo/database-as-a-service/internal/step"
	"github.com/vinigracindo/database-as-a-service/internal/steps"
	dbaaserrors "github.com/vinigracindo/database-as-a-service/pkg/errors"
)

// DefaultFstab is the fstab edited when the workflow does not name one.
const DefaultFstab = "/etc/fstab"

// Volume is an NFS export mounted by a database host.
type Volume struct {
	NFSPath string `json:"nfs_path" yaml:"nfs_path"`
}

var (
	// VolumeKey is the volume the database moves to.
	VolumeKey = model.NewKey[Volume]("volume")
	// OldVolumeKey is the volume the database currently uses.
	OldVolumeKey = model.NewKey[Volume]("old_volume")
)

// UpdateFstab points the host's fstab at the new volume. Undo points it back.
type UpdateFstab struct {
	runner shell.Runner
	fstab  string
	logger *logger.Logger
}

var _ step.Step = (*UpdateFstab)(nil)

// NewUpdateFstab creates the step. An empty fstab means DefaultFstab.
func NewUpdateFstab(runner shell.Runner, fstab string, log *logger.Logger) *UpdateFstab {
	if strings.TrimSpace(fstab) == "" {
		fstab = DefaultFstab
	}
	return &UpdateFstab{runner: runner, fstab: fstab, logger: log}
}

// Factory returns a step.Factory building a fresh UpdateFstab per resolution.
func Factory(runner shell.Runner, fstab string, log *logger.Logger) step.Factory {
	return func() step.Step {
		return NewUpdateFstab(runner, fstab, log)
	}
}

func (u *UpdateFstab) String() string {
	return "Updating volume information..."
}

// Do replaces the old export path with the new one.
func (u *UpdateFstab) Do(ctx context.Context, wc *model.Context) (bool, error) {
	in, err := readInputs(wc)
	if err != nil {
		step.Capture(wc, step.CodeMissingInput, err)
		u.logger.Error(err, "update fstab inputs missing")
		return false, nil
	}

	out, err := u.swap(ctx, in.host, in.old.NFSPath, in.target.NFSPath)
	if err == nil && out.ExitCode != 0 {
		err = &dbaaserrors.ExecutionError{Host: in.host, ExitCode: out.ExitCode, Stderr: out.Primary()}
	}
	if err != nil {
		step.Capture(wc, step.CodeUpdateFstab, err)
		u.logger.Error(err, "update fstab failed")
		return false, nil
	}
	return true, nil
}

// Undo restores the old export path. A non-zero exit is only logged.
func (u *UpdateFstab) Undo(ctx context.Context, wc *model.Context) (bool, error) {
	u.logger.Info("Running undo...")

	in, err := readInputs(wc)
	if err != nil {
		step.Capture(wc, step.CodeMissingInput, err)
		return false, nil
	}

	out, err := u.swap(ctx, in.host, in.target.NFSPath, in.old.NFSPath)
	if err != nil {
		step.Capture(wc, step.CodeUpdateFstab, err)
		return false, nil
	}
	if out.ExitCode != 0 {
		u.logger.Info(out.Primary())
	}
	return true, nil
}

func (u *UpdateFstab) swap(ctx context.Context, host, source, target string) (shell.Output, error) {
	script, err := Script(u.fstab, source, target)
	if err != nil {
		return shell.Output{}, err
	}
	return u.runner.Run(ctx, host, script)
}

type inputs struct {
	host   string
	target Volume
	old    Volume
}

func readInputs(wc *model.Context) (inputs, error) {
	var in inputs
	if wc == nil {
		return in, model.ErrMissingKey
	}

	var err error
	if in.target, err = model.Get(wc.Data, VolumeKey); err != nil {
		return in, err
	}
	if in.old, err = model.Get(wc.Data, OldVolumeKey); err != nil {
		return in, err
	}
	if in.host, err = model.Get(wc.Data, steps.HostKey); err != nil {
		return in, err
	}
	return in, nil
}

// EscapeExportPath escapes an export path for use as a sed expression.
func EscapeExportPath(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '\\', '/', '.', '*', '[', ']', '^', '$', '&':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Script builds the sed command that rewrites source into target in fstab.
// Every argument is single-quoted for the remote shell.
func Script(fstab, source, target string) (string, error) {
	inputs := []struct{ name, value string }{
		{"source", source},
		{"target", target},
		{"fstab", fstab},
	}
	for _, in := range inputs {
		if strings.TrimSpace(in.value) == "" {
			return "", fmt.Errorf("%s path is empty", in.name)
		}
		if strings.ContainsAny(in.value, "'\n") {
			return "", fmt.Errorf("%s path %q contains a quote or newline", in.name, in.value)
		}
	}
	return fmt.Sprintf("sed -i 's/%s/%s/g' '%s'", EscapeExportPath(source), escapeReplacement(target), fstab), nil
}

func escapeReplacement(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `/`, `\/`, `&`, `\&`)
	return r.Replace(path)
}
