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

// fuzzer-go is a mutation-based black-box fuzzer with two built-in targets:
// a stateless HTTP endpoint and an MQTT-connected device session. Both run
// the same schedule/mutate/execute/classify loop; the targets differ only
// in their capability sets.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/turtacn/fuzzer-go/pkg/campaign"
	"github.com/turtacn/fuzzer-go/pkg/config"
	"github.com/turtacn/fuzzer-go/pkg/corpus"
	"github.com/turtacn/fuzzer-go/pkg/metrics"
	"github.com/turtacn/fuzzer-go/pkg/mutation"
	"github.com/turtacn/fuzzer-go/pkg/oracle"
	"github.com/turtacn/fuzzer-go/pkg/recovery"
	"github.com/turtacn/fuzzer-go/pkg/report"
	"github.com/turtacn/fuzzer-go/pkg/statetrack"
	"github.com/turtacn/fuzzer-go/pkg/target/devicetarget"
	"github.com/turtacn/fuzzer-go/pkg/target/httptarget"
)

// httpPacing spaces out HTTP requests so the fuzzer does not hammer the
// endpoint into rate limiting.
const httpPacing = 200 * time.Millisecond

// flushEvery triggers an incremental artifact flush after this many
// collected failures.
const flushEvery = 5

func main() {
	var (
		configPath  = flag.String("config", "", "Path to a YAML or JSON config file")
		target      = flag.String("target", "", "Target to fuzz: http, device or both")
		iterations  = flag.Int("iterations", 0, "Scheduler iterations per campaign")
		timeout     = flag.Int("timeout", 0, "Per-execution timeout in seconds")
		output      = flag.String("output", "", "Base name of the result directory")
		httpURL     = flag.String("http-url", "", "HTTP target base URL")
		httpInput   = flag.String("http-input", "", "HTTP seed file (JSON array of records)")
		broker      = flag.String("broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
		device      = flag.String("device", "", "Device ID prefixing the MQTT topics")
		deviceInput = flag.String("device-input", "", "Device seed file (JSON array of command seeds)")
		metricsPort = flag.String("metrics-port", "", "Port for the Prometheus metrics endpoint (empty disables)")
		coverage    = flag.Bool("coverage", false, "Request coverage collection from the target harness")
		pgDSN       = flag.String("postgres-dsn", "", "Optional PostgreSQL DSN mirroring failure records")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("[X] %v", err)
	}
	applyFlags(&cfg.Campaign, *target, *iterations, *timeout, *output,
		*httpURL, *httpInput, *broker, *device, *deviceInput,
		*metricsPort, *coverage, *pgDSN)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[X] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Campaign.MetricsPort != "" {
		go metrics.Serve(":" + cfg.Campaign.MetricsPort)
	}

	var sink *report.PGSink
	if cfg.Campaign.PostgresDSN != "" {
		sink, err = report.OpenPGSink(cfg.Campaign.PostgresDSN)
		if err != nil {
			log.Fatalf("[X] %v", err)
		}
		defer sink.Close()
		log.Printf("[+] Failure records mirrored to PostgreSQL")
	}

	runDir := cfg.Campaign.OutputDir + "_" + time.Now().Format("20060102_150405")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		log.Fatalf("[X] Failed to create result directory %s: %v", runDir, err)
	}
	log.Printf("[+] Results will be written to %s/", runDir)
	if cfg.Campaign.EnableCoverage {
		log.Printf("[*] Coverage collection requested from target harness")
	}

	timeoutDur := time.Duration(cfg.Campaign.TimeoutSeconds) * time.Second
	outcomes := make(map[string]report.Outcome)
	var outcomeMu sync.Mutex
	var wg sync.WaitGroup

	if cfg.WantsHTTP() {
		c, err := buildHTTPCampaign(cfg, runDir, timeoutDur, sink)
		if err != nil {
			log.Fatalf("[X] %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runCampaign(ctx, c, outcomes, &outcomeMu)
		}()
	}

	if cfg.WantsDevice() {
		c, err := buildDeviceCampaign(cfg, runDir, timeoutDur, sink)
		if err != nil {
			log.Fatalf("[X] %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runCampaign(ctx, c, outcomes, &outcomeMu)
			if err := report.WriteSeedActivity(c.Store.Dir(), c.SeedActivity()); err != nil {
				log.Printf("[X] Writing seed activity failed: %v", err)
			}
		}()
	}

	wg.Wait()

	if err := report.WriteCombined(runDir, outcomes); err != nil {
		log.Fatalf("[X] Writing combined results failed: %v", err)
	}
	log.Printf("[+] All campaigns finished, combined results in %s/combined_results.json", runDir)
}

// applyFlags lets command-line flags override the loaded config. Only flags
// the user actually set (non-zero values) take effect.
func applyFlags(c *config.CampaignConfig, target string, iterations, timeout int,
	output, httpURL, httpInput, broker, device, deviceInput, metricsPort string,
	coverage bool, pgDSN string) {
	if target != "" {
		c.Target = target
	}
	if iterations > 0 {
		c.Iterations = iterations
	}
	if timeout > 0 {
		c.TimeoutSeconds = timeout
	}
	if output != "" {
		c.OutputDir = output
	}
	if httpURL != "" {
		c.HTTPURL = httpURL
	}
	if httpInput != "" {
		c.HTTPSeedFile = httpInput
	}
	if broker != "" {
		c.BrokerURL = broker
	}
	if device != "" {
		c.DeviceID = device
	}
	if deviceInput != "" {
		c.DeviceSeedFile = deviceInput
	}
	if metricsPort != "" {
		c.MetricsPort = metricsPort
	}
	if coverage {
		c.EnableCoverage = true
	}
	if pgDSN != "" {
		c.PostgresDSN = pgDSN
	}
}

func buildHTTPCampaign(cfg *config.Config, runDir string, timeout time.Duration, sink *report.PGSink) (*campaign.Campaign, error) {
	store, err := report.NewStore(filepath.Join(runDir, "http"), config.TargetHTTP)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		store.SetSink(sink)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	adapter := httptarget.New(httptarget.Options{
		BaseURL: cfg.Campaign.HTTPURL,
		Timeout: timeout,
	})

	return &campaign.Campaign{
		Name:       config.TargetHTTP,
		Scheduler:  corpus.NewProductScheduler(rng),
		Engine:     mutation.NewEngine(mutation.RecordOperators(), rng),
		Oracle:     oracle.NewHTTPOracle(rng),
		Adapter:    adapter,
		Store:      store,
		Iterations: cfg.Campaign.Iterations,
		Pacing:     httpPacing,
		FlushEvery: flushEvery,
		SeedFile:   cfg.Campaign.HTTPSeedFile,
	}, nil
}

func buildDeviceCampaign(cfg *config.Config, runDir string, timeout time.Duration, sink *report.PGSink) (*campaign.Campaign, error) {
	store, err := report.NewStore(filepath.Join(runDir, "device"), config.TargetDevice)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		store.SetSink(sink)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	adapter := devicetarget.New(devicetarget.Options{
		BrokerURL: cfg.Campaign.BrokerURL,
		DeviceID:  cfg.Campaign.DeviceID,
		Timeout:   timeout,
	})
	tracker := statetrack.NewLockTracker()

	return &campaign.Campaign{
		Name:       config.TargetDevice,
		Scheduler:  corpus.NewLockScheduler(rng),
		Engine:     mutation.NewEngine(mutation.CommandOperators(), rng),
		Oracle:     oracle.NewDeviceOracle(tracker.Infer),
		Tracker:    tracker,
		Adapter:    adapter,
		Session:    adapter,
		Recovery:   recovery.New(adapter),
		Store:      store,
		Iterations: cfg.Campaign.Iterations,
		FlushEvery: flushEvery,
		SeedFile:   cfg.Campaign.DeviceSeedFile,
	}, nil
}

func runCampaign(ctx context.Context, c *campaign.Campaign, outcomes map[string]report.Outcome, mu *sync.Mutex) {
	log.Printf("[+] Starting %s campaign (%d iterations)", c.Name, c.Iterations)
	if err := c.Run(ctx); err != nil {
		log.Printf("[X] %s campaign aborted: %v", c.Name, err)
	}
	outcome := c.Outcome()
	mu.Lock()
	outcomes[c.Name] = outcome
	mu.Unlock()
	log.Printf("[+] %s campaign done: %d tests, %d crashes, %d unique issues",
		c.Name, outcome.TotalTests, outcome.Crashes, outcome.UniqueIssues)
}
