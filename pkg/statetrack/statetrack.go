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

// Package statetrack infers a session target's protocol state from its log
// output. This is best-effort substring matching, not a verified state
// machine: if the target's log wording changes, the inferred state can be
// wrong. A future target can supply a structured state signal by
// implementing fuzz.StateTracker directly.
package statetrack

import "strings"

// Rule maps a log marker to the state it indicates. Matching is
// case-sensitive, following the device's log convention.
type Rule struct {
	Marker string
	State  string
}

// Tracker holds the current protocol state and the ordered marker rules.
// The first matching rule wins; when nothing matches the state is
// unchanged.
type Tracker struct {
	state string
	rules []Rule
}

// New builds a tracker with the given initial state and rules.
func New(initial string, rules []Rule) *Tracker {
	return &Tracker{state: initial, rules: rules}
}

// NewLockTracker builds the tracker for the smart-lock device. The device
// boots locked. Marker order matters: the explicit state words are checked
// before the mechanism phrases that imply them.
func NewLockTracker() *Tracker {
	return New("Locked", []Rule{
		{Marker: "Authenticated", State: "Authenticated"},
		{Marker: "Unlocked", State: "Unlocked"},
		{Marker: "Lock mechanism open", State: "Unlocked"},
		{Marker: "Locked", State: "Locked"},
		{Marker: "Lock mechanism closed", State: "Locked"},
	})
}

// Update inspects a log excerpt and returns the (possibly unchanged)
// current state.
func (t *Tracker) Update(logLine string) string {
	if state, ok := t.Infer(logLine); ok {
		t.state = state
	}
	return t.state
}

// Infer reports the state a log excerpt indicates, without changing the
// tracker. It lets the oracle recognize log phrasings that imply a state
// without naming it, such as "Lock mechanism closed" for Locked.
func (t *Tracker) Infer(logLine string) (string, bool) {
	for _, rule := range t.rules {
		if strings.Contains(logLine, rule.Marker) {
			return rule.State, true
		}
	}
	return "", false
}

// Current returns the current protocol state.
func (t *Tracker) Current() string { return t.state }
