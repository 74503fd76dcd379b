//go:build unix

package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/criyle/go-runner/envexec"
	"github.com/criyle/go-runner/language"
	"github.com/criyle/go-runner/workspace"
	"go.uber.org/zap/zaptest"
)

const (
	helloSource = "package main\n\nfunc main() {}\n"
	testSource  = "package main\n\nimport \"testing\"\n\nfunc TestAdd(t *testing.T) {}\n"
)

// shellLanguage runs a shell script in place of the go toolchain, the
// workspace path is passed as $1
type shellLanguage struct {
	plain, test string
}

func (l shellLanguage) Get(mode language.Mode, t language.Target) language.ExecParam {
	script, dir := l.plain, ""
	if mode == language.ModeTest {
		script, dir = l.test, t.Path
	}
	return language.ExecParam{
		Args: []string{"/bin/sh", "-c", script, "sh", t.Path},
		Dir:  dir,
	}
}

func newTestWorker(t *testing.T, lang language.Language, conf Config) Worker {
	t.Helper()
	if conf.Store == nil {
		conf.Store = workspace.NewManager(t.TempDir())
	}
	conf.Language = lang
	conf.Logger = zaptest.NewLogger(t)
	if conf.TimeLimit == 0 {
		conf.TimeLimit = 5 * time.Second
	}
	w := New(conf)
	t.Cleanup(w.Shutdown)
	return w
}

func run(t *testing.T, w Worker, req *Request) Response {
	t.Helper()
	select {
	case rt := <-w.Submit(context.Background(), req):
		return rt
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not respond")
	}
	return Response{}
}

func assertRemoved(t *testing.T, rt Response) {
	t.Helper()
	if rt.Workspace == "" {
		t.Fatal("workspace path not reported")
	}
	if _, err := os.Stat(rt.Workspace); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("workspace %s still exists: %v", rt.Workspace, err)
	}
}

func TestPlainRun(t *testing.T) {
	w := newTestWorker(t, shellLanguage{plain: `cat "$1"`}, Config{})
	rt := run(t, w, &Request{RequestID: "1", Source: helloSource})
	if rt.Mode != language.ModePlain {
		t.Errorf("mode = %v", rt.Mode)
	}
	ran, ok := rt.Outcome.(RanWithOutput)
	if !ok {
		t.Fatalf("outcome = %v", rt)
	}
	if ran.Output != helloSource || ran.ExitedNonZero {
		t.Errorf("unexpected output %+v", ran)
	}
	if !strings.HasPrefix(filepath.Base(rt.Workspace), "go_run_") {
		t.Errorf("unexpected workspace %s", rt.Workspace)
	}
	assertRemoved(t, rt)
}

func TestStderrOnlyOutput(t *testing.T) {
	w := newTestWorker(t, shellLanguage{plain: `echo warn >&2`}, Config{})
	rt := run(t, w, &Request{Source: helloSource})
	ran, ok := rt.Outcome.(RanWithOutput)
	if !ok || ran.Output != "warn\n" {
		t.Errorf("outcome = %v", rt)
	}
}

func TestBuildFailed(t *testing.T) {
	script := `echo "# command-line-arguments" >&2; echo "./main.go:3:1: syntax error" >&2; exit 1`
	w := newTestWorker(t, shellLanguage{plain: script}, Config{})
	rt := run(t, w, &Request{Source: helloSource})
	bf, ok := rt.Outcome.(BuildFailed)
	if !ok {
		t.Fatalf("outcome = %v", rt)
	}
	want := []string{"# command-line-arguments", "./main.go:3:1: syntax error"}
	if !slices.Equal(bf.Diagnostics, want) {
		t.Errorf("diagnostics = %q, want %q", bf.Diagnostics, want)
	}
	assertRemoved(t, rt)
}

func TestFailingTests(t *testing.T) {
	script := `test -f main_test.go || exit 3
echo "=== RUN   TestAdd"
echo "--- FAIL: TestAdd (0.00s)"
echo "FAIL"
exit 1`
	w := newTestWorker(t, shellLanguage{test: script}, Config{})
	rt := run(t, w, &Request{Source: testSource})
	if rt.Mode != language.ModeTest {
		t.Errorf("mode = %v", rt.Mode)
	}
	ran, ok := rt.Outcome.(RanWithOutput)
	if !ok {
		t.Fatalf("outcome = %v", rt)
	}
	if !ran.ExitedNonZero || !strings.Contains(ran.Output, "--- FAIL: TestAdd") {
		t.Errorf("unexpected output %+v", ran)
	}
	if !strings.HasPrefix(filepath.Base(rt.Workspace), "go_test_") {
		t.Errorf("unexpected workspace %s", rt.Workspace)
	}
	assertRemoved(t, rt)
}

func TestHiddenTestSelectsTestMode(t *testing.T) {
	w := newTestWorker(t, shellLanguage{test: `cat main_test.go`}, Config{})
	rt := run(t, w, &Request{Source: helloSource, HiddenTest: "package main\n// hidden\n"})
	ran, ok := rt.Outcome.(RanWithOutput)
	if !ok {
		t.Fatalf("outcome = %v", rt)
	}
	if ran.Output != "package challenge\n// hidden\n" {
		t.Errorf("unexpected output %q", ran.Output)
	}
}

func TestTimeLimit(t *testing.T) {
	w := newTestWorker(t, shellLanguage{plain: `sleep 10`}, Config{TimeLimit: 100 * time.Millisecond})
	start := time.Now()
	rt := run(t, w, &Request{Source: helloSource})
	if _, ok := rt.Outcome.(TimedOut); !ok {
		t.Fatalf("outcome = %v", rt)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("took %v", d)
	}
	assertRemoved(t, rt)
}

func TestOutputLimit(t *testing.T) {
	w := newTestWorker(t, shellLanguage{plain: `yes`}, Config{OutputLimit: envexec.Size(1 << 10)})
	rt := run(t, w, &Request{Source: helloSource})
	bf, ok := rt.Outcome.(BuildFailed)
	if !ok {
		t.Fatalf("outcome = %v", rt)
	}
	if len(bf.Diagnostics) != 1 || !strings.HasPrefix(bf.Diagnostics[0], "Output limit exceeded") {
		t.Errorf("diagnostics = %q", bf.Diagnostics)
	}
}

func TestWorkspaceError(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w := newTestWorker(t, shellLanguage{plain: `true`}, Config{Store: workspace.NewManager(root)})
	rt := run(t, w, &Request{Source: helloSource})
	we, ok := rt.Outcome.(WorkspaceError)
	if !ok {
		t.Fatalf("outcome = %v", rt)
	}
	if !strings.Contains(we.Message, root) {
		t.Errorf("message %q does not name the root", we.Message)
	}
}

func TestCancelledRequest(t *testing.T) {
	w := newTestWorker(t, shellLanguage{plain: `sleep 10`}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	ch := w.Submit(ctx, &Request{Source: helloSource})
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case rt := <-ch:
		if _, ok := rt.Outcome.(TimedOut); !ok {
			t.Errorf("outcome = %v", rt)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not finish")
	}
}

func TestExecObserver(t *testing.T) {
	observed := make(chan Response, 1)
	w := newTestWorker(t, shellLanguage{plain: `true`}, Config{
		ExecObserver: func(rt Response) { observed <- rt },
	})
	rt := run(t, w, &Request{RequestID: "obs", Source: helloSource})
	got := <-observed
	if got.RequestID != rt.RequestID || got.Outcome != rt.Outcome {
		t.Errorf("observed %v, got %v", got, rt)
	}
}

func TestParallelismLimit(t *testing.T) {
	w := newTestWorker(t, shellLanguage{plain: `sleep 0.2; echo "$1"`}, Config{Parallelism: 1})
	start := time.Now()
	a := w.Submit(context.Background(), &Request{Source: helloSource + "// a\n"})
	b := w.Submit(context.Background(), &Request{Source: helloSource + "// b\n"})
	<-a
	<-b
	if d := time.Since(start); d < 400*time.Millisecond {
		t.Errorf("two requests finished in %v with parallelism 1", d)
	}
}

func TestShutdownWaitsForRunning(t *testing.T) {
	w := newTestWorker(t, shellLanguage{plain: `sleep 0.5; echo done`}, Config{})
	ch := w.Submit(context.Background(), &Request{Source: helloSource})
	time.Sleep(150 * time.Millisecond)
	w.Shutdown()

	select {
	case rt := <-ch:
		ran, ok := rt.Outcome.(RanWithOutput)
		if !ok || ran.Output != "done\n" {
			t.Errorf("outcome = %v", rt)
		}
		assertRemoved(t, rt)
	case <-time.After(5 * time.Second):
		t.Fatal("running request did not finish")
	}
}

func TestShutdownCancelsWaiting(t *testing.T) {
	w := newTestWorker(t, shellLanguage{plain: `sleep 0.5; echo "$1"`}, Config{Parallelism: 1})
	running := w.Submit(context.Background(), &Request{Source: helloSource + "// running\n"})
	time.Sleep(150 * time.Millisecond)
	waiting := w.Submit(context.Background(), &Request{Source: helloSource + "// waiting\n"})
	time.Sleep(50 * time.Millisecond)
	w.Shutdown()

	if rt := <-running; rt.Outcome.Kind() != (RanWithOutput{}).Kind() {
		t.Errorf("running outcome = %v", rt)
	}
	if rt := <-waiting; rt.Outcome.Kind() != (TimedOut{}).Kind() {
		t.Errorf("waiting outcome = %v", rt)
	}
}

func TestClassifyResult(t *testing.T) {
	tests := []struct {
		name   string
		result envexec.Result
		want   Outcome
	}{
		{
			name:   "accepted",
			result: envexec.Result{Status: envexec.StatusAccepted, Stdout: []byte("hi\n")},
			want:   RanWithOutput{Output: "hi\n"},
		},
		{
			name:   "time limit",
			result: envexec.Result{Status: envexec.StatusTimeLimitExceeded, Stdout: []byte("partial")},
			want:   TimedOut{},
		},
		{
			name:   "cancelled",
			result: envexec.Result{Status: envexec.StatusCancelled},
			want:   TimedOut{},
		},
		{
			name: "test markers on nonzero exit",
			result: envexec.Result{
				Status: envexec.StatusNonzeroExitStatus,
				Stdout: []byte("=== RUN   TestA\n--- FAIL: TestA (0.00s)\nFAIL\n"),
			},
			want: RanWithOutput{Output: "=== RUN   TestA\n--- FAIL: TestA (0.00s)\nFAIL\n", ExitedNonZero: true},
		},
		{
			name: "marker on stderr",
			result: envexec.Result{
				Status: envexec.StatusNonzeroExitStatus,
				Stdout: []byte("out\n"),
				Stderr: []byte("FAIL\tchallenge\t0.01s\n"),
			},
			want: RanWithOutput{Output: "out\n", ExitedNonZero: true},
		},
		{
			name: "test build failed",
			result: envexec.Result{
				Status: envexec.StatusNonzeroExitStatus,
				Stdout: []byte("FAIL\tchallenge [build failed]\nFAIL\n"),
				Stderr: []byte("# challenge [challenge.test]\n./main_test.go:5:3: undefined: Add\n"),
			},
			want: nil,
		},
		{
			name: "no markers",
			result: envexec.Result{
				Status: envexec.StatusNonzeroExitStatus,
				Stderr: []byte("a\r\n\nb\n"),
			},
			want: nil,
		},
		{
			name:   "start failure",
			result: envexec.Result{Status: envexec.StatusInternalError, Error: "exec: not found"},
			want:   nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyResult(tc.result, 0)
			switch tc.want.(type) {
			case nil:
				if _, ok := got.(BuildFailed); !ok {
					t.Errorf("got %#v, want BuildFailed", got)
				}
			case RanWithOutput:
				if got != tc.want {
					t.Errorf("got %#v, want %#v", got, tc.want)
				}
			default:
				if got.Kind() != tc.want.Kind() {
					t.Errorf("got %#v, want %#v", got, tc.want)
				}
			}
		})
	}

	bf := classifyResult(envexec.Result{Status: envexec.StatusNonzeroExitStatus, Stderr: []byte("a\r\n\nb\n")}, 0).(BuildFailed)
	if !slices.Equal(bf.Diagnostics, []string{"a", "b"}) {
		t.Errorf("diagnostics = %q", bf.Diagnostics)
	}
	bf = classifyResult(envexec.Result{
		Status: envexec.StatusNonzeroExitStatus,
		Stdout: []byte("FAIL\tchallenge [build failed]\nFAIL\n"),
		Stderr: []byte("# challenge [challenge.test]\n./main_test.go:5:3: undefined: Add\n"),
	}, 0).(BuildFailed)
	if want := []string{"# challenge [challenge.test]", "./main_test.go:5:3: undefined: Add"}; !slices.Equal(bf.Diagnostics, want) {
		t.Errorf("diagnostics = %q, want %q", bf.Diagnostics, want)
	}
	bf = classifyResult(envexec.Result{Status: envexec.StatusInternalError, Error: "exec: not found"}, 0).(BuildFailed)
	if !slices.Equal(bf.Diagnostics, []string{"exec: not found"}) {
		t.Errorf("diagnostics = %q", bf.Diagnostics)
	}
}
