package worker

import (
	"fmt"
	"time"

	"github.com/criyle/go-runner/language"
)

// Request defines single worker request
type Request struct {
	RequestID  string
	Source     string
	HiddenTest string // empty when absent
}

// Response defines worker response for single request
type Response struct {
	RequestID string
	Mode      language.Mode
	Root      string // workspace root
	Workspace string // workspace path, already removed
	Outcome   Outcome
	Time      time.Duration
}

// Outcome is exactly one of TimedOut, BuildFailed, RanWithOutput and
// WorkspaceError
type Outcome interface {
	Kind() string
}

// TimedOut means the wall clock limit fired or the caller went away
type TimedOut struct{}

// BuildFailed means the toolchain rejected the source and printed no run or
// test output, or the output overflowed
type BuildFailed struct {
	Diagnostics []string
}

// RanWithOutput means the program or its tests ran, whatever the exit code
type RanWithOutput struct {
	Output        string
	ExitedNonZero bool
}

// WorkspaceError means the submission could not be written to disk
type WorkspaceError struct {
	Message string
}

func (TimedOut) Kind() string       { return "timed_out" }
func (BuildFailed) Kind() string    { return "build_failed" }
func (RanWithOutput) Kind() string  { return "ran" }
func (WorkspaceError) Kind() string { return "workspace_error" }

func (r Response) String() string {
	var detail string
	switch o := r.Outcome.(type) {
	case BuildFailed:
		detail = fmt.Sprintf("(diagnostics:%d)", len(o.Diagnostics))
	case RanWithOutput:
		detail = fmt.Sprintf("(len:%d,nonzero:%v)", len(o.Output), o.ExitedNonZero)
	case WorkspaceError:
		detail = o.Message
	}
	kind := "<nil>"
	if r.Outcome != nil {
		kind = r.Outcome.Kind()
	}
	return fmt.Sprintf("{RequestID:%s Mode:%v Outcome:%s%s Time:%v}", r.RequestID, r.Mode, kind, detail, r.Time)
}
