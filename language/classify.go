package language

import (
	"regexp"
	"strings"
)

// testingImport is the import path token of the standard testing package
const testingImport = `"testing"`

var (
	testFuncRe  = regexp.MustCompile(`(?m)^func (Test|Benchmark)[A-Z]`)
	benchFuncRe = regexp.MustCompile(`(?m)^func Benchmark[A-Z]`)
)

// Classify decides whether a submission is a plain run or a test run.
// Supplied hidden test code always selects test mode; otherwise the source
// must import testing and declare a top level Test or Benchmark function.
func Classify(source, hiddenTest string) Mode {
	if hiddenTest != "" {
		return ModeTest
	}
	if strings.Contains(source, testingImport) && testFuncRe.MatchString(source) {
		return ModeTest
	}
	return ModePlain
}

// HasBenchmark reports whether any of the sources declares a benchmark function
func HasBenchmark(sources ...string) bool {
	for _, s := range sources {
		if benchFuncRe.MatchString(s) {
			return true
		}
	}
	return false
}
