// Package client submits code to a go-runner server and maps every failure
// to a compile result, the way the browser playground reports them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a whole compile round trip. It is larger than the
// server side execution limit so the server reports timeouts first.
const DefaultTimeout = 20 * time.Second

const compilePath = "/api/compile"

// Result defines the compile result, Errors is never nil
type Result struct {
	Output  string   `json:"output"`
	Errors  []string `json:"errors"`
	Success bool     `json:"success"`
}

type compileRequest struct {
	Code     string `json:"code"`
	TestCode string `json:"testCode,omitempty"`
}

// Client is a go-runner client
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout replaces DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:3001
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compile submits code with optional hidden test code. It never returns an
// error: transport failures are reported in Result.Errors.
func (c *Client) Compile(ctx context.Context, code, testCode string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rt, err := c.compile(ctx, code, testCode)
	if err == nil {
		return rt
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return failed("Request timed out. Make sure the Go compiler server is running.")
	}
	var se *statusError
	if errors.As(err, &se) {
		return failed(se.Error())
	}
	return failed(fmt.Sprintf("Failed to compile: %v. Is the Go compiler server running?", err))
}

func (c *Client) compile(ctx context.Context, code, testCode string) (Result, error) {
	body, err := json.Marshal(compileRequest{Code: code, TestCode: testCode})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+compilePath, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &statusError{code: resp.StatusCode}
	}
	var rt Result
	if err := json.NewDecoder(resp.Body).Decode(&rt); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if len(rt.Errors) > 0 {
		return Result{Errors: rt.Errors}, nil
	}
	return Result{Output: rt.Output, Errors: []string{}, Success: true}, nil
}

func failed(msg string) Result {
	return Result{Errors: []string{msg}}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("Server error: %d", e.code)
}
