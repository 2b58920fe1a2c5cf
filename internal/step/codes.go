package step

import (
	"fmt"
	"runtime/debug"

	"github.com/vinigracindo/database-as-a-service/internal/model"
)

// Error codes recorded in model.Exceptions.
const (
	CodeUnhandled    = "DBAAS_0001"
	CodeResolution   = "DBAAS_0002"
	CodeRollback     = "DBAAS_0003"
	CodeCancelled    = "DBAAS_0004"
	CodeCommand      = "DBAAS_0020"
	CodeUpdateFstab  = "DBAAS_0022"
	CodeMissingInput = "DBAAS_0023"
)

// Capture records err under code on the workflow context together with the
// current goroutine's stack.
func Capture(wc *model.Context, code string, err error) {
	if wc == nil {
		return
	}
	wc.AddException(code, Traceback(err))
}

// Traceback renders err followed by the current stack.
func Traceback(err error) string {
	stack := string(debug.Stack())
	if err == nil {
		return stack
	}
	return fmt.Sprintf("%v\n%s", err, stack)
}
