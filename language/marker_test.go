package language

import "testing"

func TestMatchMarker(t *testing.T) {
	tests := []struct {
		line string
		want MarkerKind
	}{
		{"=== RUN   TestAdd", MarkerRunStart},
		{"--- PASS: TestAdd (0.00s)", MarkerTestPass},
		{"    --- FAIL: TestAdd/negative (0.00s)", MarkerTestFail},
		{"PASS", MarkerSuitePass},
		{"FAIL", MarkerSuiteFail},
		{"ok  \tchallenge\t0.002s", MarkerSuitePass},
		{"FAIL\tchallenge\t0.002s", MarkerSuiteFail},
		{"PASSED", 0},
		{"hello", 0},
		{"", 0},
	}
	for _, tc := range tests {
		if got := MatchMarker(tc.line); got != tc.want {
			t.Errorf("MatchMarker(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestHasTestMarkers(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{
			name:   "failed test run",
			output: "=== RUN   TestAdd\n    main_test.go:6: 2+2 = 4; want 5\n--- FAIL: TestAdd (0.00s)\nFAIL\nexit status 1\nFAIL\tchallenge\t0.002s\n",
			want:   true,
		},
		{
			name:   "suite marker only",
			output: "FAIL\n",
			want:   true,
		},
		{
			name:   "build failed summary",
			output: "FAIL\tchallenge [build failed]\nFAIL\n",
			want:   false,
		},
		{
			name:   "setup failed summary",
			output: "FAIL\tchallenge [setup failed]\n",
			want:   false,
		},
		{
			name:   "compiler diagnostics",
			output: "# command-line-arguments\n./main.go:2:21: syntax error: unexpected +\n",
			want:   false,
		},
		{
			name:   "empty",
			output: "",
			want:   false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasTestMarkers(tc.output); got != tc.want {
				t.Errorf("HasTestMarkers() = %v, want %v", got, tc.want)
			}
		})
	}
}
