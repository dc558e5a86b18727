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

// Package corpus owns the seed queue, the interest ledger and the power
// schedule: loading seeds with built-in fallbacks, choosing the next seed
// (state-filtered for session targets), assigning an energy budget, and
// requeueing interesting test cases as new seeds.
package corpus

import (
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

// Options configures a Scheduler for one target kind.
type Options struct {
	// Stateful selects the session scheduling behavior: seeds stay in the
	// queue and are sampled by protocol-state eligibility, and energy
	// follows the power schedule. When false the queue is consumed FIFO
	// and energy is the fixed FixedEnergy.
	Stateful bool

	// FixedEnergy is the constant budget for stateless targets.
	FixedEnergy int
	// BaseEnergy, BonusCap and JitterMax parameterize the session power
	// schedule: base + min(interesting, cap) + rand[0, jitter].
	BaseEnergy int
	BonusCap   int
	JitterMax  int

	// Decode parses a seed file for this target kind.
	Decode func(data []byte) ([]*fuzz.Seed, error)
	// Defaults produces the built-in seed set used when loading fails.
	Defaults func() []*fuzz.Seed
	// Synthesize produces one replacement seed for an empty queue.
	Synthesize func(rng *rand.Rand) *fuzz.Seed
}

// Scheduler owns a campaign's seed queue and interest ledger. It is mutated
// only by the owning campaign's single loop.
type Scheduler struct {
	opts   Options
	rng    *rand.Rand
	queue  []*fuzz.Seed
	ledger *Ledger
}

// NewScheduler creates a scheduler with an empty queue.
func NewScheduler(opts Options, rng *rand.Rand) *Scheduler {
	if opts.FixedEnergy <= 0 {
		opts.FixedEnergy = 10
	}
	if opts.BaseEnergy <= 0 {
		opts.BaseEnergy = 5
	}
	if opts.BonusCap <= 0 {
		opts.BonusCap = 7
	}
	if opts.JitterMax < 0 {
		opts.JitterMax = 0
	}
	return &Scheduler{opts: opts, rng: rng, ledger: NewLedger()}
}

// Load reads a seed file and appends its seeds to the queue. Any failure
// (missing file, parse error, empty set) falls back to the built-in
// defaults; Load never reports an error to the caller.
func (s *Scheduler) Load(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.fallback(fmt.Sprintf("failed to read seed file %s: %v", path, err))
		return
	}
	seeds, err := s.opts.Decode(data)
	if err != nil {
		s.fallback(fmt.Sprintf("failed to decode seed file %s: %v", path, err))
		return
	}
	if len(seeds) == 0 {
		s.fallback(fmt.Sprintf("seed file %s is empty", path))
		return
	}
	s.queue = append(s.queue, seeds...)
	log.Printf("[+] Loaded %d seeds from %s", len(seeds), path)
}

func (s *Scheduler) fallback(reason string) {
	defaults := s.opts.Defaults()
	s.queue = append(s.queue, defaults...)
	log.Printf("[X] %s", reason)
	log.Printf("[*] Using %d built-in default seeds instead", len(defaults))
}

// Len returns the current queue length.
func (s *Scheduler) Len() int { return len(s.queue) }

// ChooseNext selects the next seed to fuzz. It never blocks and never
// fails: an empty queue is replenished with exactly one synthesized default
// first. Stateless schedulers pop from the front; stateful schedulers
// sample uniformly among seeds eligible from currentState, falling back to
// a uniform choice over the whole queue when nothing matches.
func (s *Scheduler) ChooseNext(currentState string) *fuzz.Seed {
	if len(s.queue) == 0 {
		seed := s.opts.Synthesize(s.rng)
		s.queue = append(s.queue, seed)
		log.Printf("[*] Seed queue replenished with: %s", seed.Fingerprint())
	}
	if !s.opts.Stateful {
		seed := s.queue[0]
		s.queue = s.queue[1:]
		return seed
	}
	candidates := make([]*fuzz.Seed, 0, len(s.queue))
	for _, seed := range s.queue {
		if seed.Eligible(currentState) {
			candidates = append(candidates, seed)
		}
	}
	if len(candidates) == 0 {
		return s.queue[s.rng.Intn(len(s.queue))]
	}
	return candidates[s.rng.Intn(len(candidates))]
}

// AssignEnergy returns the number of mutated test cases to derive from the
// seed this round. Seeds with a history of interesting behavior earn a
// bonus, capped so a single seed cannot dominate the schedule. The result
// is always at least 1.
func (s *Scheduler) AssignEnergy(seed *fuzz.Seed) int {
	if !s.opts.Stateful {
		return s.opts.FixedEnergy
	}
	bonus := s.ledger.Get(seed.Fingerprint())
	if bonus > s.opts.BonusCap {
		bonus = s.opts.BonusCap
	}
	energy := s.opts.BaseEnergy + bonus + s.rng.Intn(s.opts.JitterMax+1)
	if energy < 1 {
		energy = 1
	}
	return energy
}

// RecordInteresting credits the originating seed and requeues the derived
// test case as a new seed carrying the same state expectations. Queue
// growth is unbounded within a campaign; the driver's iteration cap bounds
// the overall run.
func (s *Scheduler) RecordInteresting(seed *fuzz.Seed, tc *fuzz.TestCase) {
	s.ledger.Incr(seed.Fingerprint())
	s.queue = append(s.queue, &fuzz.Seed{
		Payload:   tc.Payload.Clone(),
		FromState: seed.FromState,
		ToState:   seed.ToState,
	})
}

// InterestingCount returns the interest count of a seed.
func (s *Scheduler) InterestingCount(seed *fuzz.Seed) int {
	return s.ledger.Get(seed.Fingerprint())
}

// Ledger exposes the interest ledger for reporting.
func (s *Scheduler) Ledger() *Ledger { return s.ledger }
