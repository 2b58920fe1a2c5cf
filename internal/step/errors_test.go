package step

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinigracindo/database-as-a-service/internal/model"
)

func TestErrorTypesExposeStep(t *testing.T) {
	t.Parallel()

	cause := errors.New("ssh: connection refused")

	tests := []struct {
		name     string
		err      error
		id       model.StepID
		contains string
	}{
		{"resolution", NewResolutionError("create_dns", ErrNotRegistered), "create_dns", "cannot resolve"},
		{"failure", &FailureError{ID: "check_dns", Label: "Checking DNS..."}, "check_dns", "Checking DNS"},
		{"unhandled error", &UnhandledError{ID: "create_nfs", Err: cause}, "create_nfs", "unhandled error"},
		{"unhandled panic", &UnhandledError{ID: "create_nfs", Err: cause, Panic: true}, "create_nfs", "unhandled panic"},
		{"rollback", &RollbackError{ID: "start_monit", Position: 2, Err: cause}, "start_monit", "undo 2"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("workflow: %w", tt.err)
			var stepErr interface{ Step() model.StepID }
			require.ErrorAs(t, wrapped, &stepErr)
			require.Equal(t, tt.id, stepErr.Step())
			require.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}

func TestErrorsUnwrapCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 1")
	require.ErrorIs(t, &UnhandledError{ID: "x", Err: cause}, cause)
	require.ErrorIs(t, &RollbackError{ID: "x", Err: cause}, cause)
	require.ErrorIs(t, NewResolutionError("x", cause), cause)
	require.Nil(t, (&FailureError{ID: "x"}).Unwrap())
}

func TestCaptureRecordsCodeAndTrace(t *testing.T) {
	t.Parallel()

	wc := model.NewContext(nil, nil)
	Capture(wc, CodeUpdateFstab, errors.New("sed: can't read /etc/fstab"))

	require.Equal(t, []string{CodeUpdateFstab}, wc.Exceptions.ErrorCodes)
	require.Contains(t, wc.Exceptions.Tracebacks[0], "sed: can't read /etc/fstab")
	require.Contains(t, wc.Exceptions.Tracebacks[0], "goroutine")

	require.NotPanics(t, func() { Capture(nil, CodeUnhandled, nil) })
}

func TestFuncStepDefaults(t *testing.T) {
	t.Parallel()

	var s Step = &Func{Label: "Nothing to do"}
	ok, err := s.Do(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Undo(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Nothing to do", s.String())
}
