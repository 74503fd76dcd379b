package language

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/google/shlex"
)

// Go runs submissions with the go command
type Go struct {
	Cmd       string
	RunArgs   []string
	TestArgs  []string
	BenchArgs []string
	Env       []string
}

var _ Language = &Go{}

// GoConfig is the textual toolchain configuration, each field is split with
// shell quoting rules
type GoConfig struct {
	Cmd       string // e.g. go
	RunArgs   string // e.g. run
	TestArgs  string // e.g. test -v ./...
	BenchArgs string // e.g. -bench=. -benchtime=100ms
	Env       string // e.g. GOTOOLCHAIN=local
}

// NewGo parses the toolchain configuration
func NewGo(conf GoConfig) (*Go, error) {
	cmd, err := split("go command", conf.Cmd)
	if err != nil {
		return nil, err
	}
	if len(cmd) == 0 {
		return nil, fmt.Errorf("parse go command: empty command %q", conf.Cmd)
	}

	g := &Go{Cmd: cmd[0]}
	if g.RunArgs, err = split("run args", conf.RunArgs); err != nil {
		return nil, err
	}
	if g.TestArgs, err = split("test args", conf.TestArgs); err != nil {
		return nil, err
	}
	if g.BenchArgs, err = split("bench args", conf.BenchArgs); err != nil {
		return nil, err
	}
	if g.Env, err = split("env", conf.Env); err != nil {
		return nil, err
	}

	// extra words in the command are leading arguments, e.g. "nice -n 10 go"
	if lead := cmd[1:]; len(lead) > 0 {
		g.RunArgs = append(slices.Clone(lead), g.RunArgs...)
		g.TestArgs = append(slices.Clone(lead), g.TestArgs...)
	}
	return g, nil
}

func split(name, s string) ([]string, error) {
	v, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

// Get builds the toolchain invocation for the mode
func (g *Go) Get(mode Mode, t Target) ExecParam {
	var args []string
	args = append(args, g.Cmd)
	p := ExecParam{Env: g.Env}
	switch mode {
	case ModeTest:
		args = append(args, g.TestArgs...)
		if t.Benchmark {
			args = append(args, g.BenchArgs...)
		}
		p.Dir = t.Path
	default:
		// run next to the file so diagnostics name it relatively
		args = append(args, g.RunArgs...)
		args = append(args, t.Path)
		p.Dir = filepath.Dir(t.Path)
	}
	p.Args = args
	return p
}
