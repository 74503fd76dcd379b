package envexec

import (
	"context"
	"errors"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait keeps reading pipes after the process was
// killed, in case a descendant escaped the process group and holds them open.
const waitDelay = 2 * time.Second

// runSingle starts the cmd in its own process group and races it against the
// time limit, the output budget and the caller's context
func runSingle(pc context.Context, c *Cmd) Result {
	var (
		limitCtx    context.Context
		limitCancel context.CancelFunc = func() {}
	)
	if c.TimeLimit > 0 {
		limitCtx, limitCancel = context.WithTimeout(pc, c.TimeLimit)
	} else {
		limitCtx = pc
	}
	defer limitCancel()

	// canceled by the output budget
	ctx, cancel := context.WithCancel(limitCtx)
	defer cancel()

	budget := newOutputBudget(c.OutputLimit, cancel)
	stdout, stderr := budget.collector(), budget.collector()

	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process)
	}

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Time:   time.Since(start),
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *exec.ExitError
	switch {
	case budget.Exceeded():
		result.Status = StatusOutputLimitExceeded
		result.ExitStatus = -1
		result.Error = "output limit exceeded"

	case err != nil && pc.Err() != nil:
		result.Status = StatusCancelled
		result.ExitStatus = -1
		result.Error = pc.Err().Error()

	case err != nil && errors.Is(limitCtx.Err(), context.DeadlineExceeded):
		result.Status = StatusTimeLimitExceeded
		result.ExitStatus = -1
		result.Error = "time limit exceeded"

	case err == nil:
		result.Status = StatusAccepted

	case errors.As(err, &exitErr):
		result.ExitStatus = exitErr.ExitCode()
		result.Error = exitErr.Error()
		if result.ExitStatus < 0 {
			result.Status = StatusSignalled
		} else {
			result.Status = StatusNonzeroExitStatus
		}

	default:
		// failed to start, or the pipes outlived waitDelay
		result.Status = StatusInternalError
		result.ExitStatus = -1
		result.Error = err.Error()
	}
	return result
}
