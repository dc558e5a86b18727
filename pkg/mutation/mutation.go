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

// Package mutation implements the mutation operators and the engine that
// derives test cases from seeds. Operators draw randomness only from the
// engine's injected source, so a campaign is reproducible for a fixed seed.
package mutation

import (
	"math/rand"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

// operator is the common shape of all operators: a name for attribution and
// a transform over a cloned payload.
type operator struct {
	name  string
	apply func(p fuzz.Payload, rng *rand.Rand) fuzz.Payload
}

func (o operator) Name() string { return o.name }

func (o operator) Apply(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	return o.apply(p, rng)
}

// Engine applies one uniformly chosen operator from its set to produce a
// test case. The input seed is never modified.
type Engine struct {
	ops []fuzz.Operator
	rng *rand.Rand
}

// NewEngine builds an engine over the given operator set.
func NewEngine(ops []fuzz.Operator, rng *rand.Rand) *Engine {
	return &Engine{ops: ops, rng: rng}
}

// Mutate derives one test case from the seed, tagged with the operator that
// produced it.
func (e *Engine) Mutate(seed *fuzz.Seed) *fuzz.TestCase {
	op := e.ops[e.rng.Intn(len(e.ops))]
	return &fuzz.TestCase{
		Payload:  op.Apply(seed.Payload, e.rng),
		Operator: op.Name(),
		Origin:   seed,
	}
}
