package client

import (
	"regexp"
	"strconv"
)

var diagnosticRe = regexp.MustCompile(`:(\d+):(\d+):\s*(.+)`)

// Diagnostic is a compiler message located in the source
type Diagnostic struct {
	Line    int
	Column  int
	Message string
}

// ParseDiagnostics locates each error line, lines without a position are
// attached to 1:1
func ParseDiagnostics(errs []string) []Diagnostic {
	rt := make([]Diagnostic, 0, len(errs))
	for _, e := range errs {
		d := Diagnostic{Line: 1, Column: 1, Message: e}
		if m := diagnosticRe.FindStringSubmatch(e); m != nil {
			line, lerr := strconv.Atoi(m[1])
			col, cerr := strconv.Atoi(m[2])
			if lerr == nil && cerr == nil {
				d = Diagnostic{Line: line, Column: col, Message: m[3]}
			}
		}
		rt = append(rt, d)
	}
	return rt
}
