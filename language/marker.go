package language

import "strings"

// MarkerKind identifies a line of go test -v output
type MarkerKind int

// Marker kinds
const (
	MarkerRunStart MarkerKind = iota + 1
	MarkerTestPass
	MarkerTestFail
	MarkerSuitePass
	MarkerSuiteFail
)

// Suite summary lines printed by go test
const (
	SuitePass = "PASS"
	SuiteFail = "FAIL"
)

// Marker matches one kind of go test output line
type Marker struct {
	Kind   MarkerKind
	Text   string
	Prefix bool // match as line prefix, otherwise the whole trimmed line
}

// Markers is the recognized go test output protocol
var Markers = []Marker{
	{Kind: MarkerRunStart, Text: "=== RUN", Prefix: true},
	{Kind: MarkerTestPass, Text: "--- PASS", Prefix: true},
	{Kind: MarkerTestFail, Text: "--- FAIL", Prefix: true},
	{Kind: MarkerSuitePass, Text: SuitePass},
	{Kind: MarkerSuitePass, Text: "ok  \t", Prefix: true},
	{Kind: MarkerSuiteFail, Text: SuiteFail},
	{Kind: MarkerSuiteFail, Text: "FAIL\t", Prefix: true},
}

// package summaries of a package that never ran
var notRunSuffixes = []string{"[build failed]", "[setup failed]"}

// MatchMarker returns the marker kind of a single output line, 0 if none
func MatchMarker(line string) MarkerKind {
	trimmed := strings.TrimSpace(line)
	indented := strings.TrimLeft(line, " ") // subtest results are indented
	for _, m := range Markers {
		if m.Prefix && strings.HasPrefix(indented, m.Text) || !m.Prefix && trimmed == m.Text {
			return m.Kind
		}
	}
	return 0
}

// HasTestMarkers reports whether output looks like a program or test run,
// as opposed to a toolchain that rejected the source. Suite summaries of a
// package that failed to build do not count.
func HasTestMarkers(output string) bool {
	var tests, suites int
	var notRun bool
	for _, line := range strings.Split(output, "\n") {
		for _, s := range notRunSuffixes {
			if strings.HasSuffix(strings.TrimSpace(line), s) {
				notRun = true
			}
		}
		switch MatchMarker(line) {
		case MarkerRunStart, MarkerTestPass, MarkerTestFail:
			tests++
		case MarkerSuitePass, MarkerSuiteFail:
			suites++
		}
	}
	return tests > 0 || suites > 0 && !notRun
}
