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

// Package campaign wires a target's capability set (scheduler, mutation
// engine, oracle, optional state tracker, adapter, optional recovery) into
// one sequential fuzzing loop. Each campaign owns its components outright;
// two campaigns never share mutable state and may run concurrently.
package campaign

import (
	"context"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/turtacn/fuzzer-go/pkg/corpus"
	"github.com/turtacn/fuzzer-go/pkg/fuzz"
	"github.com/turtacn/fuzzer-go/pkg/metrics"
	"github.com/turtacn/fuzzer-go/pkg/mutation"
	"github.com/turtacn/fuzzer-go/pkg/recovery"
	"github.com/turtacn/fuzzer-go/pkg/report"
)

// Campaign is one target's fuzzing run. Test-case issuance, execution,
// classification and state update are strictly ordered: the loop never
// issues two Execute calls concurrently against its adapter.
type Campaign struct {
	// Name labels logs, metrics and the combined results entry.
	Name string

	Scheduler *corpus.Scheduler
	Engine    *mutation.Engine
	Oracle    fuzz.Oracle
	// Tracker is nil for stateless targets.
	Tracker fuzz.StateTracker
	Adapter fuzz.Adapter
	// Session is non-nil when the adapter needs a connect/disconnect
	// lifecycle; the campaign then also runs the recovery protocol.
	Session  fuzz.SessionAdapter
	Recovery *recovery.Manager

	Store *report.Store

	// Iterations caps the number of scheduler rounds.
	Iterations int
	// Pacing is an optional delay after each execution, to avoid
	// overwhelming the target.
	Pacing time.Duration
	// FlushEvery triggers an incremental artifact flush whenever the
	// failure count reaches a multiple of it. Zero disables incremental
	// flushing.
	FlushEvery int
	// SeedFile is loaded at campaign start; load failures fall back to
	// the scheduler's built-in defaults.
	SeedFile string

	interesting int
}

// Run executes the campaign until the iteration cap or cancellation.
// Cancellation is cooperative, checked between executions; the finally
// path always disconnects a session adapter and flushes the store, so
// already-collected failures survive an interrupt.
func (c *Campaign) Run(ctx context.Context) error {
	c.Scheduler.Load(c.SeedFile)

	if c.Session != nil {
		log.Printf("[*] %s: connecting session...", c.Name)
		if err := c.Session.Connect(ctx); err != nil {
			log.Printf("[!] %s: initial connection failed: %v", c.Name, err)
			return err
		}
	}

	defer func() {
		if c.Session != nil {
			log.Printf("[*] %s: disconnecting...", c.Name)
			if err := c.Session.Disconnect(); err != nil {
				log.Printf("[!] %s: disconnect failed: %v", c.Name, err)
			}
		}
		if err := c.Store.Flush(); err != nil {
			log.Printf("[X] %s: flushing results failed: %v", c.Name, err)
		}
	}()

	lastFlushed := 0
	for iter := 0; iter < c.Iterations; iter++ {
		if ctx.Err() != nil {
			log.Printf("[*] %s: cancelled, saving results...", c.Name)
			break
		}

		state := ""
		if c.Tracker != nil {
			state = c.Tracker.Current()
		}
		seed := c.Scheduler.ChooseNext(state)
		energy := c.Scheduler.AssignEnergy(seed)
		if state != "" {
			log.Printf("[*] %s: iteration %d/%d, energy=%d, state=%s", c.Name, iter+1, c.Iterations, energy, state)
		} else {
			log.Printf("[*] %s: iteration %d/%d, energy=%d", c.Name, iter+1, c.Iterations, energy)
		}

		for i := 0; i < energy; i++ {
			if ctx.Err() != nil {
				break
			}

			tc := c.Engine.Mutate(seed)
			seq := c.Store.NextSequence()
			res := c.Adapter.Execute(ctx, tc)
			c.observe(seq, tc, res)

			if c.Oracle.IsInteresting(seed, res) {
				c.Scheduler.RecordInteresting(seed, tc)
				c.interesting++
				metrics.InterestingTotal.WithLabelValues(c.Name).Inc()
				log.Printf("[!!] %s: interesting behavior detected (op=%s)", c.Name, tc.Operator)
			}

			if c.Tracker != nil {
				c.Tracker.Update(res.LogLine)
			}

			if c.Recovery != nil && c.Recovery.ShouldRecover(res) {
				if err := c.Recovery.Recover(ctx); err != nil {
					log.Printf("[X] %s: %v", c.Name, err)
					metrics.ReconnectsTotal.WithLabelValues(c.Name, "failed").Inc()
					// Abandon this seed's remaining budget; the
					// next scheduler iteration retries fresh.
					break
				}
				metrics.ReconnectsTotal.WithLabelValues(c.Name, "ok").Inc()
			}

			if err := c.pace(ctx); err != nil {
				break
			}

			if c.FlushEvery > 0 {
				if fc := c.Store.FailureCount(); fc > 0 && fc != lastFlushed && fc%c.FlushEvery == 0 {
					lastFlushed = fc
					if err := c.Store.Flush(); err != nil {
						log.Printf("[X] %s: incremental flush failed: %v", c.Name, err)
					}
				}
			}
		}
	}

	return nil
}

// observe folds one execution result into the store and metrics. Every
// failure kind becomes a FailureRecord; nothing terminates the loop.
func (c *Campaign) observe(seq int, tc *fuzz.TestCase, res *fuzz.Result) {
	c.Store.RecordExecution(res.Err == nil)
	metrics.ExecutionsTotal.WithLabelValues(c.Name).Inc()

	if res.Err == nil {
		return
	}

	var status, response, errText string
	switch res.Err.Kind {
	case fuzz.KindTimeout:
		status = "timeout"
		response = "No response - timeout occurred"
		errText = res.Err.Msg
	case fuzz.KindFatal:
		status = "exception"
		response = res.Err.Msg
		errText = res.Err.Msg
	default:
		status = strconv.Itoa(res.Status)
		response = res.Err.Msg
	}

	wire, err := tc.Payload.WireBytes()
	if err != nil {
		wire = []byte(strconv.Quote(tc.Payload.Fingerprint()))
	}

	c.Store.RecordFailure(report.FailureRecord{
		Input:      wire,
		Status:     status,
		Response:   response,
		Operator:   tc.Operator,
		SequenceID: seq,
		Timestamp:  time.Now(),
		Err:        errText,
	})
	metrics.FailuresTotal.WithLabelValues(c.Name, res.Err.Kind.String()).Inc()
}

func (c *Campaign) pace(ctx context.Context) error {
	if c.Pacing <= 0 {
		return nil
	}
	select {
	case <-time.After(c.Pacing):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interesting returns how many results the oracle flagged.
func (c *Campaign) Interesting() int { return c.interesting }

// Outcome summarizes the campaign for the combined results file. Session
// campaigns report interesting behaviors where stateless ones report error
// responses, matching what each target's "crash" means.
func (c *Campaign) Outcome() report.Outcome {
	counters := c.Store.Counters()
	if c.Tracker != nil {
		return report.Outcome{
			TotalTests:   counters.Executed,
			Crashes:      c.interesting,
			UniqueIssues: c.Scheduler.Ledger().Unique(),
		}
	}
	return report.Outcome{
		TotalTests:   counters.Executed,
		Crashes:      counters.Errored,
		UniqueIssues: len(counters.ByOperator),
	}
}

// SeedActivity renders the interest ledger for the seed activity artifact,
// most-triggered seeds first.
func (c *Campaign) SeedActivity() []report.SeedActivity {
	snapshot := c.Scheduler.Ledger().Snapshot()
	out := make([]report.SeedActivity, 0, len(snapshot))
	for fp, count := range snapshot {
		out = append(out, report.SeedActivity{Seed: fp, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Seed < out[j].Seed
	})
	return out
}
