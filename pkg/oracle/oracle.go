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

// Package oracle classifies execution results as interesting or not. An
// interesting result is fed back into the corpus for further exploration.
package oracle

import (
	"math/rand"
	"strings"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

// HTTPOracle classifies stateless HTTP results. Besides the error-based
// rules it flags a small random fraction of successful responses to keep
// sampling response diversity; this non-determinism is a tunable sampling
// parameter, not a defect.
type HTTPOracle struct {
	// SampleProb is the probability that an otherwise uninteresting
	// result is flagged anyway.
	SampleProb float64
	rng        *rand.Rand
}

// NewHTTPOracle builds the HTTP oracle with the default 0.1 sampling
// probability.
func NewHTTPOracle(rng *rand.Rand) *HTTPOracle {
	return &HTTPOracle{SampleProb: 0.1, rng: rng}
}

// IsInteresting implements fuzz.Oracle.
func (o *HTTPOracle) IsInteresting(seed *fuzz.Seed, res *fuzz.Result) bool {
	if res.Response == nil {
		return true
	}
	if res.Status >= 400 {
		return true
	}
	return o.rng.Float64() < o.SampleProb
}

// crashMarkers are log fragments that indicate the device firmware crashed
// or hit an internal error path.
var crashMarkers = []string{"[Error]", "Guru Meditation"}

// DeviceOracle classifies session device results against the originating
// seed's declared state expectations. The four rules are independent; any
// one of them makes the result interesting.
type DeviceOracle struct {
	// InferState maps a log excerpt to the state it indicates, for log
	// phrasings that imply an expected state without naming it. Optional.
	InferState func(logLine string) (string, bool)
}

// NewDeviceOracle builds the device oracle.
func NewDeviceOracle(inferState func(string) (string, bool)) *DeviceOracle {
	return &DeviceOracle{InferState: inferState}
}

// IsInteresting implements fuzz.Oracle.
func (o *DeviceOracle) IsInteresting(seed *fuzz.Seed, res *fuzz.Result) bool {
	codes, ok := res.Response.(*fuzz.CodeResponse)
	if !ok || codes == nil || len(codes.Codes) == 0 {
		// No usable response at all.
		return true
	}
	if seed.ToState == fuzz.StateError && codes.OK() {
		// An expected failure did not occur.
		return true
	}
	if seed.ToState != "" && !o.stateReached(seed.ToState, res.LogLine) {
		return true
	}
	for _, marker := range crashMarkers {
		if strings.Contains(res.LogLine, marker) {
			return true
		}
	}
	return false
}

// stateReached reports whether the log excerpt reflects the expected
// end-state, either by naming it or by a phrase the state rules map to it.
func (o *DeviceOracle) stateReached(expected, logLine string) bool {
	if strings.Contains(strings.ToLower(logLine), strings.ToLower(expected)) {
		return true
	}
	if o.InferState != nil {
		if state, ok := o.InferState(logLine); ok && state == expected {
			return true
		}
	}
	return false
}
