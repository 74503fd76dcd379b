// Package language describes how a Go submission is laid out on disk and
// which toolchain invocation runs it.
package language

// Mode is the execution mode of a submission
type Mode int

// Submission modes
const (
	ModePlain Mode = iota // go run <file>
	ModeTest              // go test -v ./... in a module directory
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "run"
	case ModeTest:
		return "test"
	default:
		return "unknown"
	}
}

// Language defines the way to run program
type Language interface {
	Get(Mode, Target) ExecParam // Get execparam for the mode against a materialized target
}

// Target is the materialized submission the toolchain runs against
type Target struct {
	Path      string // source file (plain) or module directory (test)
	Benchmark bool   // enable the benchmark pass (test only)
}

// ExecParam defines specs to run the toolchain
type ExecParam struct {
	Args []string
	Env  []string
	Dir  string
}
