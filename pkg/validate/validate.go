// Package validate decides whether the output of a run satisfies a
// challenge.
//
// Surrounding white space of the output is ignored by every rule.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Rule is one of Exact, Pattern, TestPass and Any
type Rule interface {
	explain(output string) error
}

// Exact passes when the output equals Expected
type Exact struct {
	Expected string
}

// Pattern passes when the regular expression matches anywhere in the output
type Pattern struct {
	Expr string
}

// TestPass passes when the go test output reports a passed suite and no
// failure
type TestPass struct{}

// Any passes when one of its rules passes
type Any []Rule

// ErrNoRule is returned by Explain when there is nothing to validate against
var ErrNoRule = errors.New("validate: no rule")

// Validate reports whether output satisfies rule
func Validate(rule Rule, output string) bool {
	return Explain(rule, output) == nil
}

// Explain returns nil when output satisfies rule, otherwise an error
// describing the mismatch
func Explain(rule Rule, output string) error {
	if rule == nil {
		return ErrNoRule
	}
	return rule.explain(strings.TrimSpace(output))
}

// Applicable reports whether a response should be validated at all
func Applicable(success bool, output string) bool {
	return success && output != ""
}

func (r Exact) explain(output string) error {
	expected := strings.TrimSpace(r.Expected)
	if output == expected {
		return nil
	}
	if err := compareLines(expected, output); err != nil {
		return err
	}
	// lines only differ in trailing spaces
	return errors.New("output differs from expected in white space")
}

func (r Pattern) explain(output string) error {
	re, err := regexp.Compile(r.Expr)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", r.Expr, err)
	}
	if !re.MatchString(output) {
		return fmt.Errorf("output does not match pattern %q", r.Expr)
	}
	return nil
}

func (r Any) explain(output string) error {
	if len(r) == 0 {
		return ErrNoRule
	}
	errs := make([]error, 0, len(r))
	for _, rule := range r {
		if rule == nil {
			continue
		}
		err := rule.explain(output)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrNoRule
	}
	return errors.Join(errs...)
}

func (TestPass) explain(output string) error {
	var pass, fail bool
	for _, l := range strings.Split(output, "\n") {
		switch strings.TrimSpace(l) {
		case "PASS":
			pass = true
		case "FAIL":
			fail = true
		}
	}
	switch {
	case fail:
		return errors.New("tests failed")
	case !pass:
		return errors.New("tests did not report PASS")
	}
	return nil
}
