package envexec

import (
	"time"

	"github.com/criyle/go-sandbox/runner"
)

// Size represent data size in bytes
type Size = runner.Size

// Cmd defines instruction to run a toolchain program
type Cmd struct {
	// exec argument, environment
	Args []string
	Env  []string

	// working directory, current directory if empty
	Dir string

	// resource limits
	TimeLimit   time.Duration
	OutputLimit Size // shared by stdout and stderr, 0 means unlimited
}

// Result defines the running result for single Cmd
type Result struct {
	Status Status

	ExitStatus int

	Error string // error

	Time time.Duration

	// captured output, truncated at the output limit
	Stdout []byte
	Stderr []byte
}
