package validate

import (
	"bufio"
	"fmt"
	"strings"
	"unicode"
)

// compareLines returns the first line that differs between expected and
// actual, ignoring white space at line ending and trailing empty lines
func compareLines(expected, actual string) error {
	expScan := bufio.NewScanner(strings.NewReader(expected))
	actScan := bufio.NewScanner(strings.NewReader(actual))

	for line := 1; ; line++ {
		exp, hasExp := scanTrimRight(expScan)
		act, hasAct := scanTrimRight(actScan)

		// EOF at the same time
		if !hasExp && !hasAct {
			return nil
		}
		if exp != act {
			return newErr(line, exp, act)
		}
		if hasExp && hasAct {
			continue
		}
		if err := verifyEOFSpace("actual", actScan); err != nil {
			return err
		}
		return verifyEOFSpace("expected", expScan)
	}
}

func newErr(line int, exp, act string) error {
	return fmt.Errorf("at line %d,\nexpected: %v\nactual: %v", line, exp, act)
}

func scanTrimRight(sc *bufio.Scanner) (string, bool) {
	if sc.Scan() {
		return strings.TrimRightFunc(sc.Text(), unicode.IsSpace), true
	}
	return "", false
}

func verifyEOFSpace(name string, sc *bufio.Scanner) error {
	for sc.Scan() {
		if v := strings.TrimRightFunc(sc.Text(), unicode.IsSpace); v != "" {
			return fmt.Errorf("%v has more content: %v", name, v)
		}
	}
	return nil
}
