package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		output string
		want   bool
	}{
		{"exact", Exact{Expected: "Hello, World!"}, "Hello, World!\n", true},
		{"exact surrounding space", Exact{Expected: "\n 1\n2 \n"}, "1\n2", true},
		{"exact mismatch", Exact{Expected: "Hello"}, "hello", false},
		{"exact inner space", Exact{Expected: "1\n2"}, "1 \n2", false},
		{"pattern", Pattern{Expr: `^sum: \d+$`}, "sum: 42\n", true},
		{"pattern anywhere", Pattern{Expr: `\d+`}, "total 7 items", true},
		{"pattern mismatch", Pattern{Expr: `^\d+$`}, "abc", false},
		{"pattern invalid", Pattern{Expr: `(`}, "(", false},
		{"test pass", TestPass{}, "=== RUN   TestA\n--- PASS: TestA (0.00s)\nPASS\nok  \tchallenge\t0.01s\n", true},
		{"test pass indented", TestPass{}, "  PASS  \n", true},
		{"test fail", TestPass{}, "--- FAIL: TestA (0.00s)\nFAIL\nFAIL\tchallenge\t0.01s\n", false},
		{"test pass and fail", TestPass{}, "PASS\nFAIL\n", false},
		{"test no summary", TestPass{}, "--- PASS: TestA (0.00s)\n", false},
		{"test pass substring", TestPass{}, "PASSED\n", false},
		{"no rule", nil, "anything", false},
		{"any exact", Any{Exact{Expected: "42"}, Pattern{Expr: `^x`}}, "42", true},
		{"any pattern", Any{Exact{Expected: "42"}, Pattern{Expr: `^4\d$`}}, "43", true},
		{"any none", Any{Exact{Expected: "42"}, Pattern{Expr: `^x`}}, "43", false},
		{"any empty", Any{}, "43", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Validate(tc.rule, tc.output); got != tc.want {
				t.Errorf("Validate(%#v, %q) = %v, want %v", tc.rule, tc.output, got, tc.want)
			}
		})
	}
}

func TestExplain(t *testing.T) {
	err := Explain(Exact{Expected: "1\n2\n3"}, "1\n5\n3")
	if err == nil || !strings.Contains(err.Error(), "at line 2") {
		t.Errorf("unexpected error %v", err)
	}
	err = Explain(Exact{Expected: "1\n2"}, "1\n2\n3")
	if err == nil || !strings.Contains(err.Error(), "at line 3") {
		t.Errorf("unexpected error %v", err)
	}
	if err := Explain(Exact{Expected: "1\n2"}, "1 \n2"); err == nil {
		t.Error("expected white space mismatch")
	}
	if err := Explain(Pattern{Expr: "("}, ""); err == nil || !strings.Contains(err.Error(), "invalid pattern") {
		t.Errorf("unexpected error %v", err)
	}
	if err := Explain(nil, ""); !errors.Is(err, ErrNoRule) {
		t.Errorf("unexpected error %v", err)
	}
	err = Explain(Any{Exact{Expected: "a"}, Pattern{Expr: "^b$"}}, "c")
	if err == nil || !strings.Contains(err.Error(), "at line 1") || !strings.Contains(err.Error(), "does not match") {
		t.Errorf("unexpected error %v", err)
	}
	if err := Explain(TestPass{}, "PASS"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestApplicable(t *testing.T) {
	if Applicable(false, "out") || Applicable(true, "") || !Applicable(true, "out") {
		t.Error("unexpected applicability")
	}
}

func TestCompareLines(t *testing.T) {
	tests := []struct {
		exp, act string
		ok       bool
	}{
		{"a\nb", "a  \nb\t", true},
		{"a\nb\n\n", "a\nb", true},
		{"a", "a\n\n  \n", true},
		{"a", "a\nb", false},
		{"a\nb", "a", false},
		{"a", "b", false},
	}
	for _, tc := range tests {
		if err := compareLines(tc.exp, tc.act); (err == nil) != tc.ok {
			t.Errorf("compareLines(%q, %q) = %v", tc.exp, tc.act, err)
		}
	}
}
