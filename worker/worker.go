package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/criyle/go-runner/envexec"
	"github.com/criyle/go-runner/language"
	"github.com/criyle/go-runner/workspace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Config defines worker configuration
type Config struct {
	Store        workspace.Store
	Language     language.Language
	Parallelism  int
	TimeLimit    time.Duration
	OutputLimit  envexec.Size
	Env          []string // base environment of the toolchain, os.Environ() if nil
	ExecObserver func(Response)
	Logger       *zap.Logger
}

// Worker defines interface for executor
type Worker interface {
	Submit(context.Context, *Request) <-chan Response
	Shutdown()
}

// worker defines executor worker
type worker struct {
	store       workspace.Store
	lang        language.Language
	sem         *semaphore.Weighted
	timeLimit   time.Duration
	outputLimit envexec.Size
	env         []string
	logger      *zap.Logger

	execObserver func(Response)

	stopOnce sync.Once
	wg       sync.WaitGroup
	done     chan struct{}
}

// New creates new worker
func New(conf Config) Worker {
	parallelism := conf.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	env := conf.Env
	if env == nil {
		env = os.Environ()
	}
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &worker{
		store:        conf.Store,
		lang:         conf.Language,
		sem:          semaphore.NewWeighted(int64(parallelism)),
		timeLimit:    conf.TimeLimit,
		outputLimit:  conf.OutputLimit,
		env:          env,
		logger:       logger,
		execObserver: conf.ExecObserver,
		done:         make(chan struct{}),
	}
}

// Submit runs the request in a new goroutine once a parallelism slot is free.
// The channel receives exactly one response.
func (w *worker) Submit(ctx context.Context, req *Request) <-chan Response {
	ch := make(chan Response, 1)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		rt := w.workDo(ctx, req)
		if w.execObserver != nil {
			w.execObserver(rt)
		}
		ch <- rt
	}()
	return ch
}

// Shutdown cancels requests waiting for a slot or a workspace and waits for
// running executions to finish
func (w *worker) Shutdown() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
}

func (w *worker) workDo(pc context.Context, req *Request) (rt Response) {
	start := time.Now()
	mode := language.Classify(req.Source, req.HiddenTest)
	rt = Response{
		RequestID: req.RequestID,
		Mode:      mode,
		Root:      w.store.Root(),
	}
	defer func() {
		rt.Time = time.Since(start)
	}()

	// shutdown only aborts waiting, running executions are left to finish
	waitCtx, cancel := context.WithCancel(pc)
	defer cancel()
	go func() {
		select {
		case <-w.done:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := w.sem.Acquire(waitCtx, 1); err != nil {
		rt.Outcome = TimedOut{}
		return
	}
	defer w.sem.Release(1)
	if waitCtx.Err() != nil {
		rt.Outcome = TimedOut{}
		return
	}

	spec := workspace.Spec{
		Mode:       mode,
		Source:     req.Source,
		HiddenTest: req.HiddenTest,
	}
	rt.Workspace = filepath.Join(rt.Root, workspace.Name(spec))
	ws, err := w.store.Materialize(waitCtx, spec)
	if err != nil {
		var werr *workspace.Error
		if errors.As(err, &werr) {
			w.logger.Warn("materialize workspace failed", zap.String("requestId", req.RequestID), zap.Error(err))
			rt.Outcome = WorkspaceError{Message: err.Error()}
		} else {
			rt.Outcome = TimedOut{}
		}
		return
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			w.logger.Error("remove workspace failed", zap.String("path", ws.Path), zap.Error(err))
		}
	}()

	rt.Outcome = w.execute(pc, mode, ws, req)
	return
}

func (w *worker) execute(ctx context.Context, mode language.Mode, ws *workspace.Workspace, req *Request) Outcome {
	p := w.lang.Get(mode, language.Target{
		Path:      ws.Path,
		Benchmark: mode == language.ModeTest && language.HasBenchmark(req.Source, req.HiddenTest),
	})
	env := make([]string, 0, len(w.env)+len(p.Env))
	env = append(env, w.env...)
	env = append(env, p.Env...)

	s := &envexec.Single{
		Cmd: &envexec.Cmd{
			Args:        p.Args,
			Env:         env,
			Dir:         p.Dir,
			TimeLimit:   w.timeLimit,
			OutputLimit: w.outputLimit,
		},
	}
	w.logger.Debug("exec", zap.String("requestId", req.RequestID), zap.Strings("args", p.Args), zap.String("dir", p.Dir))
	result, err := s.Run(ctx)
	if err != nil {
		return BuildFailed{Diagnostics: []string{err.Error()}}
	}
	return classifyResult(result, w.outputLimit)
}

// classifyResult maps a finished toolchain process to its outcome
func classifyResult(r envexec.Result, outputLimit envexec.Size) Outcome {
	switch r.Status {
	case envexec.StatusTimeLimitExceeded, envexec.StatusCancelled:
		return TimedOut{}
	case envexec.StatusOutputLimitExceeded:
		return BuildFailed{Diagnostics: []string{
			fmt.Sprintf("Output limit exceeded. Your code printed more than %v.", outputLimit),
		}}
	}

	stdout, stderr := string(r.Stdout), string(r.Stderr)
	exitedNonZero := r.Status != envexec.StatusAccepted
	if exitedNonZero && !language.HasTestMarkers(stdout+"\n"+stderr) {
		msg := stderr
		if strings.TrimSpace(msg) == "" {
			msg = r.Error
		}
		return BuildFailed{Diagnostics: splitLines(msg)}
	}

	output := stdout
	if output == "" {
		output = stderr
	}
	return RanWithOutput{Output: output, ExitedNonZero: exitedNonZero}
}

// splitLines splits s into its non-blank lines
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	rt := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) != "" {
			rt = append(rt, l)
		}
	}
	return rt
}
