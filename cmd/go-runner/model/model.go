package model

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/criyle/go-runner/language"
	"github.com/criyle/go-runner/worker"
)

// Request defines the compile request body
type Request struct {
	Code     string `json:"code"`
	TestCode string `json:"testCode,omitempty"`
}

// Response defines the compile response body, Errors is never nil
type Response struct {
	Output  string   `json:"output"`
	Errors  []string `json:"errors"`
	Success bool     `json:"success"`
}

// ErrorResponse defines the body of a rejected request
type ErrorResponse struct {
	Error string `json:"error"`
}

// user facing messages
const (
	MsgNoCode        = "No code provided"
	MsgTimedOut      = "Execution timed out. Your code took too long to run."
	MsgWriteFailed   = "Failed to write code: "
	MsgTestFailed    = "Failed to run tests: "
	redactedSource   = language.SourceFileName
	redactedPackage  = language.PackageName
	redactedRootPath = "."
)

// ErrNoCode is returned by ConvertRequest when the request carries no source
var ErrNoCode = errors.New(MsgNoCode)

// ConvertRequest converts json request into worker request
func ConvertRequest(r *Request, requestID string) (*worker.Request, error) {
	if r.Code == "" {
		return nil, ErrNoCode
	}
	return &worker.Request{
		RequestID:  requestID,
		Source:     r.Code,
		HiddenTest: r.TestCode,
	}, nil
}

// ConvertResponse converts worker response to json response, workspace paths
// are redacted from every message and from program output
func ConvertResponse(r worker.Response) Response {
	switch o := r.Outcome.(type) {
	case worker.RanWithOutput:
		return Response{Output: redact(r, o.Output), Errors: []string{}, Success: true}

	case worker.BuildFailed:
		errs := make([]string, 0, len(o.Diagnostics))
		for _, d := range o.Diagnostics {
			errs = append(errs, redact(r, d))
		}
		return Response{Errors: errs}

	case worker.WorkspaceError:
		prefix := MsgWriteFailed
		if r.Mode == language.ModeTest {
			prefix = MsgTestFailed
		}
		return Response{Errors: []string{prefix + redact(r, o.Message)}}

	default:
		return Response{Errors: []string{MsgTimedOut}}
	}
}

func redact(r worker.Response, s string) string {
	if r.Workspace != "" {
		if r.Mode == language.ModeTest {
			s = strings.ReplaceAll(s, r.Workspace+"/", redactedPackage+"/")
			s = strings.ReplaceAll(s, r.Workspace, redactedPackage)
		} else {
			name := filepath.Base(r.Workspace)
			s = strings.ReplaceAll(s, r.Workspace, redactedSource)
			s = strings.ReplaceAll(s, "./"+name, redactedSource)
			s = strings.ReplaceAll(s, name, redactedSource)
		}
	}
	if r.Root != "" && r.Root != "/" {
		s = strings.ReplaceAll(s, r.Root+"/", "")
		s = strings.ReplaceAll(s, r.Root, redactedRootPath)
	}
	return s
}
