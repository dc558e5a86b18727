// Copyright 2025 The fuzzer-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httptarget adapts a stateless HTTP endpoint to the fuzzing
// engine: one POST per test case, every transport failure folded into the
// typed result.
package httptarget

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 64 * 1024

// bodyExcerptLen bounds the body excerpt kept on the result.
const bodyExcerptLen = 200

// Options configures the adapter.
type Options struct {
	// BaseURL is the endpoint base; test cases POST to BaseURL + "add/".
	BaseURL string
	// Timeout bounds each request.
	Timeout time.Duration
	// Headers are sent with every request.
	Headers map[string]string
	// InsecureSkipVerify disables TLS certificate checks, for lab
	// endpoints with self-signed certificates.
	InsecureSkipVerify bool
}

// Adapter executes test cases against the HTTP target.
type Adapter struct {
	opts   Options
	client *http.Client
}

// New builds the adapter and its HTTP client.
func New(opts Options) *Adapter {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Headers == nil {
		opts.Headers = map[string]string{
			"Content-Type": "application/json",
			"Cookie":       "csrftoken=VALID_CSRF_TOKEN; sessionid=VALID_SESSION_ID",
		}
	}
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Adapter{
		opts: opts,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}
}

// Execute implements fuzz.Adapter. A status >= 400 is an error outcome but
// still yields a populated result so the oracle sees it; a timeout is a
// distinguished error kind, not a crash.
func (a *Adapter) Execute(ctx context.Context, tc *fuzz.TestCase) *fuzz.Result {
	wire, err := tc.Payload.WireBytes()
	if err != nil {
		return &fuzz.Result{Err: &fuzz.ExecError{
			Kind: fuzz.KindApplication,
			Msg:  "unserializable payload: " + err.Error(),
		}}
	}

	url := a.opts.BaseURL + "add/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(wire))
	if err != nil {
		return &fuzz.Result{Err: &fuzz.ExecError{
			Kind: fuzz.KindFatal,
			Msg:  err.Error(),
		}}
	}
	for k, v := range a.opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		kind := fuzz.KindFatal
		if isTimeout(err) {
			kind = fuzz.KindTimeout
		}
		return &fuzz.Result{
			Elapsed: elapsed,
			Err:     &fuzz.ExecError{Kind: kind, Msg: err.Error()},
		}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	excerpt := string(body)
	if len(excerpt) > bodyExcerptLen {
		excerpt = excerpt[:bodyExcerptLen]
	}

	res := &fuzz.Result{
		Response: &fuzz.HTTPResponse{StatusCode: resp.StatusCode, Body: excerpt},
		Elapsed:  elapsed,
		Status:   resp.StatusCode,
	}
	if resp.StatusCode >= 400 {
		res.Err = &fuzz.ExecError{
			Kind: fuzz.KindApplication,
			Msg:  SimplifyErrorBody(string(body)),
		}
	}
	return res
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// SimplifyErrorBody reduces an error response body to a short message.
// Framework error pages arrive as large HTML documents that would bloat the
// failure records.
func SimplifyErrorBody(body string) string {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "<html") {
		if strings.Contains(lower, "request body exceeded") {
			return "Memory error: request data too large"
		}
		return "Error response in HTML format - details omitted"
	}
	return body
}
