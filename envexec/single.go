package envexec

import (
	"context"
	"errors"
)

var errEmptyArgs = errors.New("envexec: empty args")

// Single defines a single command to run
type Single struct {
	Cmd *Cmd
}

// Run starts the cmd and returns the result once the process and all its
// output have been collected. The returned error is reserved for invalid
// commands; process failures are reported through Result.Status.
func (s *Single) Run(ctx context.Context) (Result, error) {
	if s.Cmd == nil || len(s.Cmd.Args) == 0 {
		return Result{}, errEmptyArgs
	}
	return runSingle(ctx, s.Cmd), nil
}
