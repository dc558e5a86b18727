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

package corpus

import "sync"

// Ledger tracks how many interesting executions each seed fingerprint has
// produced. Counts only ever grow and live for the whole campaign. It uses
// a RWMutex so a concurrently running metrics or report reader can snapshot
// it while the owning campaign loop writes.
type Ledger struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{counts: make(map[string]int)}
}

// Incr increments the count for a fingerprint and returns the new value.
func (l *Ledger) Incr(fingerprint string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[fingerprint]++
	return l.counts[fingerprint]
}

// Get returns the count for a fingerprint; zero if never seen.
func (l *Ledger) Get(fingerprint string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts[fingerprint]
}

// Unique returns the number of distinct fingerprints that have produced at
// least one interesting execution.
func (l *Ledger) Unique() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.counts)
}

// Snapshot returns a copy of the count map.
func (l *Ledger) Snapshot() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}
