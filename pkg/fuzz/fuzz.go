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

// Package fuzz defines the data model and the capability interfaces shared by
// every fuzzing campaign: payloads, seeds, test cases, execution results, and
// the pluggable components (mutation operators, oracles, state trackers,
// target adapters) a target must supply to be driven by the generic engine.
package fuzz

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// StateAny is the wildcard protocol state. It is only valid as a seed
// precondition; a live state tracker never reports it.
const StateAny = "any"

// StateError is the sentinel end-state used by seeds that expect the target
// to reject their command.
const StateError = "error"

// ErrorKind classifies an execution failure. The driver, oracle and recovery
// manager branch on the kind instead of inspecting raw transport errors.
type ErrorKind int

const (
	// KindTimeout means the target produced no response within the bound.
	// It is recorded as a failure but never triggers recovery.
	KindTimeout ErrorKind = iota
	// KindFatal means the underlying connection or session is no longer
	// usable. For session targets this triggers the recovery manager.
	KindFatal
	// KindApplication means the target answered, but with an error status
	// or code. Recorded as a failure; the session stays usable.
	KindApplication
)

// String returns the status label used in failure records and summaries.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindFatal:
		return "exception"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// ExecError is a typed execution failure carried inside a Result.
type ExecError struct {
	Kind ErrorKind
	Msg  string
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Payload is an opaque, target-specific test input. Implementations must be
// immutable from the engine's point of view: mutation operators clone first
// and modify the clone.
type Payload interface {
	// Fingerprint returns a stable, deterministic serialization of the
	// payload used as a map key for interest accounting. It must not vary
	// with mutation metadata.
	Fingerprint() string
	// Clone returns a deep copy safe to modify independently.
	Clone() Payload
	// WireBytes serializes the payload into the target's wire format.
	WireBytes() ([]byte, error)
}

// Seed is a known-good or previously-derived input used as a mutation basis.
// Stateless targets leave the state tags empty.
type Seed struct {
	Payload   Payload
	FromState string
	ToState   string
}

// Fingerprint identifies the seed for interest accounting. State tags are
// part of the identity so the same command under different preconditions
// counts separately, matching how seeds are declared.
func (s *Seed) Fingerprint() string {
	return fmt.Sprintf("%s|%s>%s", s.Payload.Fingerprint(), s.FromState, s.ToState)
}

// Clone returns an independent copy of the seed.
func (s *Seed) Clone() *Seed {
	return &Seed{
		Payload:   s.Payload.Clone(),
		FromState: s.FromState,
		ToState:   s.ToState,
	}
}

// Eligible reports whether the seed may be scheduled from the given protocol
// state. Seeds declaring the wildcard precondition are always eligible.
func (s *Seed) Eligible(state string) bool {
	return s.FromState == state || s.FromState == StateAny
}

// TestCase is a seed-shaped payload after exactly one mutation operator has
// been applied. Operator is attribution metadata only and is never
// transmitted; Origin points at the seed the case was derived from.
type TestCase struct {
	Payload  Payload
	Operator string
	Origin   *Seed
}

// Response is the target-specific structured value of a successful (or at
// least answered) execution.
type Response interface {
	// Summary returns a short human-readable rendering for logs.
	Summary() string
}

// Result is the outcome of executing one test case. It is ephemeral: the
// oracle and state tracker consume it, then it is folded into a failure
// record or discarded.
type Result struct {
	// Response is nil when the target produced no usable answer.
	Response Response
	// LogLine is the most recent target log excerpt observed for this
	// execution. Session adapters synthesize one on transport failure so
	// state tracking always has a value to inspect.
	LogLine string
	// Elapsed is the wall-clock execution time.
	Elapsed time.Duration
	// Status is the raw transport status code where the target has one
	// (HTTP status); zero otherwise.
	Status int
	// Err is non-nil when the execution failed; its kind decides whether
	// the failure is recorded, recovered from, or both.
	Err *ExecError
}

// Operator is one mutation transformation. Apply must be deterministic for a
// fixed random source and must never modify p; it returns a new payload that
// is still serializable in the target's wire format.
type Operator interface {
	Name() string
	Apply(p Payload, rng *rand.Rand) Payload
}

// Oracle classifies an execution result as worth further exploration.
// Implementations must be side-effect free.
type Oracle interface {
	IsInteresting(seed *Seed, res *Result) bool
}

// StateTracker infers the protocol state of a session target from its log
// output. Update returns the (possibly unchanged) state after inspecting the
// excerpt.
type StateTracker interface {
	Update(logLine string) string
	Current() string
}

// Adapter executes a single test case against a target. Execute must never
// propagate transport errors: every failure kind is captured in the Result.
type Adapter interface {
	Execute(ctx context.Context, tc *TestCase) *Result
}

// SessionAdapter is an Adapter whose target requires an explicit
// connect/disconnect lifecycle, held by the campaign driver. Implementations
// are not safe for concurrent Execute calls.
type SessionAdapter interface {
	Adapter
	Connect(ctx context.Context) error
	Disconnect() error
}
