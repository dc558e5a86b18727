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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ExecutionsTotal.WithLabelValues("test-target"))
	ExecutionsTotal.WithLabelValues("test-target").Inc()
	after := testutil.ToFloat64(ExecutionsTotal.WithLabelValues("test-target"))
	assert.Equal(t, before+1, after)

	FailuresTotal.WithLabelValues("test-target", "timeout").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(FailuresTotal.WithLabelValues("test-target", "timeout")))

	InterestingTotal.WithLabelValues("test-target").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(InterestingTotal.WithLabelValues("test-target")))

	ReconnectsTotal.WithLabelValues("test-target", "ok").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(ReconnectsTotal.WithLabelValues("test-target", "ok")))
}
