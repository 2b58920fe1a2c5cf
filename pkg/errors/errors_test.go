package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("did not find expected key")
	err := NewParseError("resize.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "resize.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Equal(t, "parse error: resize.yaml:12: did not find expected key", err.Error())

	require.Equal(t, "parse error: resize.yaml: boom", NewParseError("resize.yaml", 0, stdErrors.New("boom")).Error())
}

func TestValidationErrorIncludesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("steps[1].id", "duplicate step id", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "steps[1].id", validationErr.Field)
	require.Equal(t, "validation error: steps[1].id: duplicate step id", err.Error())
	require.Equal(t, "validation error: missing name", NewValidationError("", "missing name", nil).Error())
}

func TestValidationErrorsAggregate(t *testing.T) {
	t.Parallel()

	errs := ValidationErrors{
		{Field: "name", Message: "is required"},
		{Field: "steps[0].do", Message: "is required for command steps"},
	}

	var err error = errs
	require.Contains(t, err.Error(), "validation failed with 2 errors")
	require.Contains(t, err.Error(), "  - steps[0].do: is required for command steps")

	var single *ValidationError
	require.ErrorAs(t, err, &single)
	require.Equal(t, "name", single.Field)

	require.Equal(t, errs[0].Error(), ValidationErrors{errs[0]}.Error())
	require.Empty(t, ValidationErrors{}.Error())
}

func TestExecutionErrorIncludesStepContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("signal: killed")
	err := NewExecutionError("stop_database", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "stop_database", executionErr.StepID)
	require.True(t, stdErrors.Is(err, underlying))

	exit := &ExecutionError{StepID: "update_fstab", Host: "db-01", ExitCode: 2, Stderr: "sed: no such file\n"}
	require.Equal(t, "execution error on step update_fstab (host db-01): exit status 2: sed: no such file", exit.Error())
}

func TestNilReceiversAreSafe(t *testing.T) {
	t.Parallel()

	var p *ParseError
	var v *ValidationError
	var e *ExecutionError
	require.Empty(t, p.Error())
	require.Nil(t, p.Unwrap())
	require.Empty(t, v.Error())
	require.Nil(t, v.Unwrap())
	require.Empty(t, e.Error())
	require.Nil(t, e.Unwrap())
}
