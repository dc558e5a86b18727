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

// Package report owns a campaign's result store: execution counters, the
// append-only failure queue, and the on-disk artifacts (failure collection,
// per-operator groupings, plain-text summary). Failures are flushed
// incrementally and again at campaign end, so an interrupted run loses
// nothing already collected.
package report

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FailureRecord is one collected failure. Records are append-only and never
// mutated after being added to the store.
type FailureRecord struct {
	// Input is the wire-format test input that triggered the failure.
	Input json.RawMessage `json:"input"`
	// Status is the HTTP status code as a string, or "timeout" /
	// "exception" for transport failures.
	Status string `json:"status_code"`
	// Response is the simplified response or error message.
	Response string `json:"response"`
	// Operator names the mutation that produced the input.
	Operator string `json:"mutation_type"`
	// SequenceID is the execution ordinal within the campaign.
	SequenceID int `json:"request_id"`
	// Timestamp is when the failure was observed.
	Timestamp time.Time `json:"timestamp"`
	// Err carries the transport error text, when there was one.
	Err string `json:"error,omitempty"`
}

// Counters is a snapshot of a store's tallies.
type Counters struct {
	Executed   int
	Succeeded  int
	Errored    int
	Failures   int
	ByOperator map[string]int
	ByStatus   map[string]int
}

// Store collects results for one campaign. The owning campaign loop is the
// only writer; the mutex exists so a flush triggered from the shutdown path
// cannot race a late write.
type Store struct {
	mu         sync.Mutex
	dir        string
	target     string
	failures   []FailureRecord
	executed   int
	succeeded  int
	errored    int
	byOperator map[string]int
	byStatus   map[string]int
	seq        int
	sink       *PGSink
}

// NewStore creates a store writing artifacts under dir.
func NewStore(dir, target string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create result directory %s: %w", dir, err)
	}
	return &Store{
		dir:        dir,
		target:     target,
		byOperator: make(map[string]int),
		byStatus:   make(map[string]int),
	}, nil
}

// SetSink attaches an optional database sink; every subsequent failure is
// mirrored there.
func (s *Store) SetSink(sink *PGSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// NextSequence returns the next execution ordinal.
func (s *Store) NextSequence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// RecordExecution tallies one completed execution.
func (s *Store) RecordExecution(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed++
	if success {
		s.succeeded++
	} else {
		s.errored++
	}
}

// RecordFailure appends a failure record and updates the per-operator and
// per-status tallies. Sink errors are logged, never propagated: losing the
// database mirror must not lose the campaign.
func (s *Store) RecordFailure(rec FailureRecord) {
	s.mu.Lock()
	s.failures = append(s.failures, rec)
	s.byOperator[rec.Operator]++
	s.byStatus[rec.Status]++
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		if err := sink.Insert(s.target, rec); err != nil {
			log.Printf("[!] Failure sink insert failed: %v", err)
		}
	}
}

// FailureCount returns the number of collected failures.
func (s *Store) FailureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}

// Counters returns a snapshot of the tallies.
func (s *Store) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Counters{
		Executed:   s.executed,
		Succeeded:  s.succeeded,
		Errored:    s.errored,
		Failures:   len(s.failures),
		ByOperator: make(map[string]int, len(s.byOperator)),
		ByStatus:   make(map[string]int, len(s.byStatus)),
	}
	for k, v := range s.byOperator {
		c.ByOperator[k] = v
	}
	for k, v := range s.byStatus {
		c.ByStatus[k] = v
	}
	return c
}

// Flush writes all artifacts: failures.json, the per-operator groupings
// under by_type/, and summary.txt. Flushing with no failures still writes
// the summary so an uneventful campaign leaves a trace.
func (s *Store) Flush() error {
	s.mu.Lock()
	failures := make([]FailureRecord, len(s.failures))
	copy(failures, s.failures)
	s.mu.Unlock()

	if len(failures) > 0 {
		if err := s.writeJSON(filepath.Join(s.dir, "failures.json"), failures); err != nil {
			return err
		}

		byType := make(map[string][]FailureRecord)
		for _, rec := range failures {
			byType[rec.Operator] = append(byType[rec.Operator], rec)
		}
		typeDir := filepath.Join(s.dir, "by_type")
		if err := os.MkdirAll(typeDir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", typeDir, err)
		}
		for op, recs := range byType {
			path := filepath.Join(typeDir, fmt.Sprintf("%s_failures.json", op))
			if err := s.writeJSON(path, recs); err != nil {
				return err
			}
		}
	}

	return s.writeSummary(failures)
}

func (s *Store) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *Store) writeSummary(failures []FailureRecord) error {
	c := s.Counters()

	var b strings.Builder
	fmt.Fprintf(&b, "%s Fuzzing Summary Report\n", titleCase(s.target))
	fmt.Fprintf(&b, "===========================\n")
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total Requests: %d\n", c.Executed)
	fmt.Fprintf(&b, "Successful Responses: %d\n", c.Succeeded)
	fmt.Fprintf(&b, "Error Responses: %d\n", c.Errored)
	fmt.Fprintf(&b, "Failures Collected: %d\n\n", c.Failures)

	b.WriteString("Failures by type:\n")
	for _, op := range sortedKeys(c.ByOperator) {
		fmt.Fprintf(&b, "  %s: %d failures\n", op, c.ByOperator[op])
	}

	b.WriteString("\nStatus Code Distribution:\n")
	for _, status := range sortedKeys(c.ByStatus) {
		fmt.Fprintf(&b, "  %s: %d occurrences\n", status, c.ByStatus[status])
	}

	if len(failures) > 0 {
		b.WriteString("\nSample Failures:\n")
		limit := len(failures)
		if limit > 5 {
			limit = 5
		}
		for i := 0; i < limit; i++ {
			rec := failures[i]
			fmt.Fprintf(&b, "\n--- Failure #%d ---\n", i+1)
			fmt.Fprintf(&b, "Mutation: %s\n", rec.Operator)
			fmt.Fprintf(&b, "Status: %s\n", rec.Status)
			fmt.Fprintf(&b, "Input: %s\n", string(rec.Input))
			response := rec.Response
			if len(response) > 200 {
				response = response[:200] + "..."
			}
			fmt.Fprintf(&b, "Response: %s\n", response)
		}
	}

	path := filepath.Join(s.dir, "summary.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
