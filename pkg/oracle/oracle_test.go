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

package oracle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
	"github.com/turtacn/fuzzer-go/pkg/statetrack"
)

func httpSeed() *fuzz.Seed {
	return &fuzz.Seed{Payload: fuzz.NewRecordPayload(
		fuzz.RecordField{Key: "name", Value: "Widget"},
	)}
}

func TestHTTPOracleNilResponse(t *testing.T) {
	o := NewHTTPOracle(rand.New(rand.NewSource(1)))
	assert.True(t, o.IsInteresting(httpSeed(), &fuzz.Result{}))
}

func TestHTTPOracleErrorStatus(t *testing.T) {
	o := NewHTTPOracle(rand.New(rand.NewSource(1)))
	o.SampleProb = 0

	testCases := []struct {
		name        string
		status      int
		interesting bool
	}{
		{name: "server error", status: 500, interesting: true},
		{name: "client error", status: 400, interesting: true},
		{name: "ok", status: 200, interesting: false},
		{name: "redirect", status: 302, interesting: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := &fuzz.Result{
				Response: &fuzz.HTTPResponse{StatusCode: tc.status},
				Status:   tc.status,
			}
			assert.Equal(t, tc.interesting, o.IsInteresting(httpSeed(), res))
		})
	}
}

func TestHTTPOracleSamplesSuccesses(t *testing.T) {
	o := NewHTTPOracle(rand.New(rand.NewSource(1)))
	o.SampleProb = 1.0
	res := &fuzz.Result{Response: &fuzz.HTTPResponse{StatusCode: 200}, Status: 200}
	assert.True(t, o.IsInteresting(httpSeed(), res))
}

func TestDeviceOracle(t *testing.T) {
	o := NewDeviceOracle(statetrack.NewLockTracker().Infer)

	ok := &fuzz.CodeResponse{Codes: []int{0x00}}
	fail := &fuzz.CodeResponse{Codes: []int{0x01}}

	testCases := []struct {
		name        string
		seed        *fuzz.Seed
		res         *fuzz.Result
		interesting bool
	}{
		{
			name:        "no response",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01)},
			res:         &fuzz.Result{},
			interesting: true,
		},
		{
			name:        "empty code list",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01)},
			res:         &fuzz.Result{Response: &fuzz.CodeResponse{}},
			interesting: true,
		},
		{
			name:        "expected failure did not occur",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01), ToState: fuzz.StateError},
			res:         &fuzz.Result{Response: ok, LogLine: "[Info] error handled"},
			interesting: true,
		},
		{
			name:        "expected failure occurred",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01), ToState: fuzz.StateError},
			res:         &fuzz.Result{Response: fail, LogLine: "[Warn] command rejected: error"},
			interesting: false,
		},
		{
			name:        "expected state reached",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01), ToState: "Unlocked"},
			res:         &fuzz.Result{Response: ok, LogLine: "[Info] Device Unlocked"},
			interesting: false,
		},
		{
			name:        "expected state match is case-insensitive",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01), ToState: "Unlocked"},
			res:         &fuzz.Result{Response: ok, LogLine: "[Info] device unlocked"},
			interesting: false,
		},
		{
			name:        "expected state implied by mechanism phrase",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x00, 0x01, 0x02, 0x03, 0x04, 0x05), ToState: "Locked"},
			res:         &fuzz.Result{Response: ok, LogLine: "[Debug] Lock mechanism closed"},
			interesting: false,
		},
		{
			name:        "expected state missed",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01), ToState: "Unlocked"},
			res:         &fuzz.Result{Response: ok, LogLine: "[Info] still Locked"},
			interesting: true,
		},
		{
			name:        "crash marker error",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01)},
			res:         &fuzz.Result{Response: ok, LogLine: "[Error] assertion failed"},
			interesting: true,
		},
		{
			name:        "crash marker guru meditation",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01)},
			res:         &fuzz.Result{Response: ok, LogLine: "Guru Meditation Error: Core 0 panic'ed"},
			interesting: true,
		},
		{
			name:        "unremarkable result",
			seed:        &fuzz.Seed{Payload: fuzz.NewCommandPayload(0x01)},
			res:         &fuzz.Result{Response: ok, LogLine: "[Info] command processed"},
			interesting: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.interesting, o.IsInteresting(tc.seed, tc.res))
		})
	}
}
