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

// Package metrics provides Prometheus metrics for the fuzzing engine.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ExecutionsTotal counts executed test cases per target.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fuzzer_go_executions_total",
		Help: "The total number of test cases executed against a target.",
	},
		[]string{"target"},
	)

	// FailuresTotal counts collected failure records per target and
	// error kind.
	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fuzzer_go_failures_total",
		Help: "The total number of failure records collected.",
	},
		[]string{"target", "kind"},
	)

	// InterestingTotal counts results the oracle classified interesting.
	InterestingTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fuzzer_go_interesting_total",
		Help: "The total number of interesting behaviors detected.",
	},
		[]string{"target"},
	)

	// ReconnectsTotal counts recovery attempts on session targets.
	ReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fuzzer_go_reconnects_total",
		Help: "The total number of session recovery attempts.",
	},
		[]string{"target", "outcome"},
	)
)

// Serve starts an HTTP server to expose the Prometheus metrics.
func Serve(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	log.Printf("Metrics server listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logFatalf("Metrics server failed: %v", err)
	}
}

// logFatalf can be replaced by tests to prevent process exit.
var logFatalf = log.Fatalf
