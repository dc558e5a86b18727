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

package fuzz

import "fmt"

// HTTPResponse is the answer of a stateless HTTP target.
type HTTPResponse struct {
	StatusCode int
	// Body is a bounded excerpt of the response body.
	Body string
}

// Summary implements Response.
func (r *HTTPResponse) Summary() string {
	return fmt.Sprintf("HTTP %d (%d body bytes)", r.StatusCode, len(r.Body))
}

// CodeResponse is the answer of a session device: a sequence of result
// codes, the first of which is the success/failure indicator (0x00 = ok).
type CodeResponse struct {
	Codes []int
}

// OK reports whether the device signalled success.
func (r *CodeResponse) OK() bool {
	return len(r.Codes) > 0 && r.Codes[0] == 0x00
}

// Summary implements Response.
func (r *CodeResponse) Summary() string {
	return fmt.Sprintf("codes %v", r.Codes)
}
