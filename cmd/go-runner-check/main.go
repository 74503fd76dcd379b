// Command go-runner-check submits a solution of a challenge to a go-runner
// server and exits 0 only when the output passes the challenge validation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/criyle/go-runner/client"
	"github.com/criyle/go-runner/pkg/validate"
	"github.com/criyle/go-runner/problem"
	"github.com/koding/multiconfig"
)

// Config defines the check configuration
type Config struct {
	Server    string        `flagUsage:"specifies the go-runner server address" default:"http://localhost:3001"`
	Catalog   string        `flagUsage:"specifies the challenge catalog file" default:"challenges.yaml"`
	Challenge string        `flagUsage:"specifies the challenge id" required:"true"`
	Solution  string        `flagUsage:"specifies the solution source file, starter code if empty"`
	Timeout   time.Duration `flagUsage:"specifies the request timeout" default:"20s"`
}

func (c *Config) load() error {
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    "GRC",
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: "GRC",
		},
	)
	if err := cl.Load(c); err != nil {
		return err
	}
	return multiconfig.MultiValidator(&multiconfig.RequiredValidator{}).Validate(c)
}

var errNotPassed = errors.New("challenge not passed")

func main() {
	var conf Config
	if err := conf.load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	err := run(context.Background(), &conf, os.Stdout)
	switch {
	case errors.Is(err, errNotPassed):
		os.Exit(1)
	case err != nil:
		log.Fatalln(err)
	}
}

func run(ctx context.Context, conf *Config, w io.Writer) error {
	catalog, err := problem.Load(conf.Catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	ch, ok := catalog.Find(conf.Challenge)
	if !ok {
		return fmt.Errorf("challenge %q not found in %s", conf.Challenge, conf.Catalog)
	}
	code := ch.StarterCode
	if conf.Solution != "" {
		b, err := os.ReadFile(conf.Solution)
		if err != nil {
			return fmt.Errorf("read solution: %w", err)
		}
		code = string(b)
	}

	c := client.New(conf.Server, client.WithTimeout(conf.Timeout))
	rt := c.Compile(ctx, code, ch.TestCode)

	fmt.Fprintf(w, "# %s: %s\n", ch.ID, ch.Title)
	if rt.Output != "" {
		fmt.Fprintln(w, rt.Output)
	}
	for _, d := range client.ParseDiagnostics(rt.Errors) {
		fmt.Fprintf(w, "error %d:%d: %s\n", d.Line, d.Column, d.Message)
	}
	if !validate.Applicable(rt.Success, rt.Output) {
		return errNotPassed
	}
	if err := validate.Explain(ch.Rule(), rt.Output); err != nil {
		fmt.Fprintf(w, "FAILED: %v\n", err)
		return errNotPassed
	}
	fmt.Fprintf(w, "PASSED (%d points)\n", ch.Points)
	return nil
}
