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

package campaign

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fuzzer-go/pkg/corpus"
	"github.com/turtacn/fuzzer-go/pkg/fuzz"
	"github.com/turtacn/fuzzer-go/pkg/mutation"
	"github.com/turtacn/fuzzer-go/pkg/recovery"
	"github.com/turtacn/fuzzer-go/pkg/report"
	"github.com/turtacn/fuzzer-go/pkg/statetrack"
)

// scriptedAdapter replays a fixed result sequence, then repeats the last
// entry.
type scriptedAdapter struct {
	script   []*fuzz.Result
	executed int

	connects    int
	disconnects int
	connectErr  error
	// reconnectErr fails every Connect after the first, simulating a
	// target that comes up once and then stays down.
	reconnectErr error
}

func (a *scriptedAdapter) Execute(ctx context.Context, tc *fuzz.TestCase) *fuzz.Result {
	i := a.executed
	if i >= len(a.script) {
		i = len(a.script) - 1
	}
	a.executed++
	return a.script[i]
}

func (a *scriptedAdapter) Connect(ctx context.Context) error {
	a.connects++
	if a.connectErr != nil {
		return a.connectErr
	}
	if a.connects > 1 {
		return a.reconnectErr
	}
	return nil
}

func (a *scriptedAdapter) Disconnect() error {
	a.disconnects++
	return nil
}

func okDeviceResult(logLine string) *fuzz.Result {
	return &fuzz.Result{
		Response: &fuzz.CodeResponse{Codes: []int{0x00}},
		LogLine:  logLine,
	}
}

// neverOracle flags nothing.
type neverOracle struct{}

func (neverOracle) IsInteresting(seed *fuzz.Seed, res *fuzz.Result) bool { return false }

// alwaysOracle flags everything.
type alwaysOracle struct{}

func (alwaysOracle) IsInteresting(seed *fuzz.Seed, res *fuzz.Result) bool { return true }

func newStore(t *testing.T, target string) *report.Store {
	t.Helper()
	store, err := report.NewStore(filepath.Join(t.TempDir(), target), target)
	require.NoError(t, err)
	return store
}

func TestStatelessCampaignExecutesFixedBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	adapter := &scriptedAdapter{script: []*fuzz.Result{
		{Response: &fuzz.HTTPResponse{StatusCode: 200}, Status: 200},
	}}
	store := newStore(t, "http")

	c := &Campaign{
		Name:       "http",
		Scheduler:  corpus.NewProductScheduler(rng),
		Engine:     mutation.NewEngine(mutation.RecordOperators(), rng),
		Oracle:     neverOracle{},
		Adapter:    adapter,
		Store:      store,
		Iterations: 3,
		SeedFile:   "missing.json",
	}
	require.NoError(t, c.Run(context.Background()))

	// 3 iterations x fixed energy 10.
	assert.Equal(t, 30, adapter.executed)
	assert.Equal(t, 30, store.Counters().Executed)
	assert.Equal(t, 0, store.Counters().Failures)
	// No session lifecycle for stateless campaigns.
	assert.Equal(t, 0, adapter.connects)

	outcome := c.Outcome()
	assert.Equal(t, 30, outcome.TotalTests)
	assert.Equal(t, 0, outcome.Crashes)
}

func TestCampaignRecordsFailures(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	adapter := &scriptedAdapter{script: []*fuzz.Result{
		{Status: 500, Response: &fuzz.HTTPResponse{StatusCode: 500}, Err: &fuzz.ExecError{Kind: fuzz.KindApplication, Msg: "server error"}},
		{Err: &fuzz.ExecError{Kind: fuzz.KindTimeout, Msg: "no response within 10s"}},
		{Response: &fuzz.HTTPResponse{StatusCode: 200}, Status: 200},
	}}
	store := newStore(t, "http")

	c := &Campaign{
		Name:       "http",
		Scheduler:  corpus.NewProductScheduler(rng),
		Engine:     mutation.NewEngine(mutation.RecordOperators(), rng),
		Oracle:     neverOracle{},
		Adapter:    adapter,
		Store:      store,
		Iterations: 1,
		SeedFile:   "missing.json",
	}
	require.NoError(t, c.Run(context.Background()))

	counters := store.Counters()
	assert.Equal(t, 10, counters.Executed)
	assert.Equal(t, 2, counters.Failures)
	assert.Equal(t, 1, counters.ByStatus["500"])
	assert.Equal(t, 1, counters.ByStatus["timeout"])
}

func TestCampaignFlushesArtifactsOnCompletion(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	adapter := &scriptedAdapter{script: []*fuzz.Result{
		{Status: 500, Response: &fuzz.HTTPResponse{StatusCode: 500}, Err: &fuzz.ExecError{Kind: fuzz.KindApplication, Msg: "boom"}},
	}}
	store := newStore(t, "http")

	c := &Campaign{
		Name:       "http",
		Scheduler:  corpus.NewProductScheduler(rng),
		Engine:     mutation.NewEngine(mutation.RecordOperators(), rng),
		Oracle:     neverOracle{},
		Adapter:    adapter,
		Store:      store,
		Iterations: 1,
		SeedFile:   "missing.json",
	}
	require.NoError(t, c.Run(context.Background()))

	_, err := os.Stat(filepath.Join(store.Dir(), "failures.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(store.Dir(), "summary.txt"))
	assert.NoError(t, err)
}

func TestSessionCampaignLifecycleAndStateTracking(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	adapter := &scriptedAdapter{script: []*fuzz.Result{
		okDeviceResult("[Info] Device Unlocked"),
	}}
	store := newStore(t, "device")
	tracker := statetrack.NewLockTracker()

	c := &Campaign{
		Name:       "device",
		Scheduler:  corpus.NewLockScheduler(rng),
		Engine:     mutation.NewEngine(mutation.CommandOperators(), rng),
		Oracle:     neverOracle{},
		Tracker:    tracker,
		Adapter:    adapter,
		Session:    adapter,
		Recovery:   recovery.NewWithBackoff(adapter, time.Millisecond),
		Store:      store,
		Iterations: 2,
		SeedFile:   "missing.json",
	}
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, 1, adapter.connects)
	assert.Equal(t, 1, adapter.disconnects)
	assert.Equal(t, "Unlocked", tracker.Current())
	assert.Positive(t, adapter.executed)
}

func TestSessionCampaignAbortsOnInitialConnectFailure(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	adapter := &scriptedAdapter{connectErr: errors.New("broker down")}
	store := newStore(t, "device")

	c := &Campaign{
		Name:       "device",
		Scheduler:  corpus.NewLockScheduler(rng),
		Engine:     mutation.NewEngine(mutation.CommandOperators(), rng),
		Oracle:     neverOracle{},
		Tracker:    statetrack.NewLockTracker(),
		Adapter:    adapter,
		Session:    adapter,
		Store:      store,
		Iterations: 2,
		SeedFile:   "missing.json",
	}
	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, adapter.executed)
}

func TestSessionCampaignRecoversFromFatalError(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	adapter := &scriptedAdapter{script: []*fuzz.Result{
		{LogLine: "[!] Exception: connection reset", Err: &fuzz.ExecError{Kind: fuzz.KindFatal, Msg: "connection reset"}},
		okDeviceResult("[Info] Device Locked"),
	}}
	store := newStore(t, "device")

	c := &Campaign{
		Name:       "device",
		Scheduler:  corpus.NewLockScheduler(rng),
		Engine:     mutation.NewEngine(mutation.CommandOperators(), rng),
		Oracle:     neverOracle{},
		Tracker:    statetrack.NewLockTracker(),
		Adapter:    adapter,
		Session:    adapter,
		Recovery:   recovery.NewWithBackoff(adapter, time.Millisecond),
		Store:      store,
		Iterations: 1,
		SeedFile:   "missing.json",
	}
	require.NoError(t, c.Run(context.Background()))

	// Initial connect plus the reconnect after the fatal result.
	assert.Equal(t, 2, adapter.connects)
	assert.Equal(t, 1, store.Counters().Failures)
	assert.Equal(t, 1, store.Counters().ByStatus["exception"])
}

func TestRecoveryFailureAbandonsEnergyBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	adapter := &scriptedAdapter{
		script: []*fuzz.Result{
			{LogLine: "[!] Exception: connection reset", Err: &fuzz.ExecError{Kind: fuzz.KindFatal, Msg: "connection reset"}},
		},
		reconnectErr: errors.New("broker still down"),
	}
	store := newStore(t, "device")

	c := &Campaign{
		Name:       "device",
		Scheduler:  corpus.NewLockScheduler(rng),
		Engine:     mutation.NewEngine(mutation.CommandOperators(), rng),
		Oracle:     neverOracle{},
		Tracker:    statetrack.NewLockTracker(),
		Adapter:    adapter,
		Session:    adapter,
		Recovery:   recovery.NewWithBackoff(adapter, time.Millisecond),
		Store:      store,
		Iterations: 3,
		SeedFile:   "missing.json",
	}
	require.NoError(t, c.Run(context.Background()))

	// Every execution is fatal and every reconnect fails, so each
	// iteration runs exactly one test case, attempts exactly one
	// reconnect, and abandons the rest of its energy budget.
	assert.Equal(t, 3, adapter.executed)
	// Initial connect plus one failed reconnect per iteration.
	assert.Equal(t, 1+3, adapter.connects)
	assert.Equal(t, 3, store.Counters().Failures)
	assert.Equal(t, 3, store.Counters().ByStatus["exception"])
}

func TestInterestingResultsFeedBackIntoCorpus(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	adapter := &scriptedAdapter{script: []*fuzz.Result{
		okDeviceResult("[Info] command processed"),
	}}
	store := newStore(t, "device")

	c := &Campaign{
		Name:       "device",
		Scheduler:  corpus.NewLockScheduler(rng),
		Engine:     mutation.NewEngine(mutation.CommandOperators(), rng),
		Oracle:     alwaysOracle{},
		Tracker:    statetrack.NewLockTracker(),
		Adapter:    adapter,
		Session:    adapter,
		Recovery:   recovery.NewWithBackoff(adapter, time.Millisecond),
		Store:      store,
		Iterations: 1,
		SeedFile:   "missing.json",
	}
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, adapter.executed, c.Interesting())
	assert.Greater(t, c.Scheduler.Len(), len(corpus.LockDefaults()))
	assert.Positive(t, c.Scheduler.Ledger().Unique())

	activity := c.SeedActivity()
	require.NotEmpty(t, activity)
	assert.Positive(t, activity[0].Count)
	// Sorted by descending count.
	for i := 1; i < len(activity); i++ {
		assert.GreaterOrEqual(t, activity[i-1].Count, activity[i].Count)
	}

	outcome := c.Outcome()
	assert.Equal(t, adapter.executed, outcome.Crashes)
}

func TestCampaignHonorsCancellation(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	adapter := &scriptedAdapter{script: []*fuzz.Result{
		{Response: &fuzz.HTTPResponse{StatusCode: 200}, Status: 200},
	}}
	store := newStore(t, "http")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Campaign{
		Name:       "http",
		Scheduler:  corpus.NewProductScheduler(rng),
		Engine:     mutation.NewEngine(mutation.RecordOperators(), rng),
		Oracle:     neverOracle{},
		Adapter:    adapter,
		Store:      store,
		Iterations: 100,
		SeedFile:   "missing.json",
	}
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 0, adapter.executed)
}

func TestCampaignIncrementalFlush(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	adapter := &scriptedAdapter{script: []*fuzz.Result{
		{Status: 500, Response: &fuzz.HTTPResponse{StatusCode: 500}, Err: &fuzz.ExecError{Kind: fuzz.KindApplication, Msg: "boom"}},
	}}
	store := newStore(t, "http")

	c := &Campaign{
		Name:       "http",
		Scheduler:  corpus.NewProductScheduler(rng),
		Engine:     mutation.NewEngine(mutation.RecordOperators(), rng),
		Oracle:     neverOracle{},
		Adapter:    adapter,
		Store:      store,
		Iterations: 1,
		FlushEvery: 5,
		SeedFile:   "missing.json",
	}
	require.NoError(t, c.Run(context.Background()))

	// Every execution failed, so the incremental flush fired mid-run and
	// failures.json holds all 10 records after the final flush.
	data, err := os.ReadFile(filepath.Join(store.Dir(), "failures.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mutation_type"`)
	assert.Equal(t, 10, store.FailureCount())
}
