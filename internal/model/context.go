package model

// StepID identifies a step in a workflow. The step registry resolves it to a
// fresh executable instance.
type StepID string

// String returns the identifier text.
func (id StepID) String() string {
	return string(id)
}

// Exceptions accumulates diagnostics recorded by failing steps. ErrorCodes and
// Tracebacks are parallel: entry i of each belongs to the same failure.
type Exceptions struct {
	ErrorCodes []string `json:"error_codes"`
	Tracebacks []string `json:"traceback"`
}

// Add appends one diagnostic pair.
func (e *Exceptions) Add(code, traceback string) {
	e.ErrorCodes = append(e.ErrorCodes, code)
	e.Tracebacks = append(e.Tracebacks, traceback)
}

// Len returns the number of recorded diagnostics.
func (e *Exceptions) Len() int {
	return len(e.ErrorCodes)
}

// Clone returns a deep copy safe to hand to callers.
func (e *Exceptions) Clone() Exceptions {
	return Exceptions{
		ErrorCodes: append([]string(nil), e.ErrorCodes...),
		Tracebacks: append([]string(nil), e.Tracebacks...),
	}
}

// Context is the mutable state shared by every step of one workflow run.
// It is created per invocation and must not be reused across runs.
type Context struct {
	// Steps is the ordered step list. The runner truncates it to the
	// attempted prefix when a forward step fails, and the undo scan walks it.
	Steps []StepID
	// StepCounter is the 1-based position of the step being executed. It is
	// decremented while undoing and is only used for progress reporting.
	StepCounter int
	// TotalSteps is the original step count, fixed when the run starts.
	TotalSteps int
	Status     Status
	// Msgs is the append-only progress log.
	Msgs       []string
	Exceptions Exceptions
	// Data carries the workflow payload steps use to hand values to later
	// steps and to their compensators.
	Data *Payload
}

// NewContext builds a pending context for the given steps and payload. A nil
// payload is replaced with an empty one.
func NewContext(steps []StepID, data *Payload) *Context {
	if data == nil {
		data = NewPayload()
	}
	return &Context{
		Steps:  append([]StepID(nil), steps...),
		Status: StatusPending,
		Data:   data,
	}
}

// AddException records a diagnostic pair on the context.
func (c *Context) AddException(code, traceback string) {
	c.Exceptions.Add(code, traceback)
}
