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

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

// ProductDefaults is the built-in seed set for the HTTP product endpoint,
// used when the seed file is missing or malformed.
func ProductDefaults() []*fuzz.Seed {
	return []*fuzz.Seed{
		{Payload: fuzz.NewRecordPayload(
			fuzz.RecordField{Key: "name", Value: "Default Product"},
			fuzz.RecordField{Key: "price", Value: 99.99},
			fuzz.RecordField{Key: "info", Value: "Default product information"},
		)},
		{Payload: fuzz.NewRecordPayload(
			fuzz.RecordField{Key: "name", Value: "Test Item"},
			fuzz.RecordField{Key: "price", Value: float64(100)},
			fuzz.RecordField{Key: "info", Value: "Sample description"},
		)},
	}
}

// SynthesizeProduct creates one replacement product seed for an exhausted
// queue.
func SynthesizeProduct(rng *rand.Rand) *fuzz.Seed {
	price := float64(int((10+rng.Float64()*990)*100)) / 100
	return &fuzz.Seed{Payload: fuzz.NewRecordPayload(
		fuzz.RecordField{Key: "name", Value: fmt.Sprintf("Replenished Product %d", 1000+rng.Intn(9000))},
		fuzz.RecordField{Key: "price", Value: price},
		fuzz.RecordField{Key: "info", Value: fmt.Sprintf("Replenished product information %s", time.Now().Format(time.RFC3339))},
	)}
}

// LockDefaults is the built-in seed set for the smart-lock device.
func LockDefaults() []*fuzz.Seed {
	return []*fuzz.Seed{
		{
			Payload:   fuzz.NewCommandPayload(0x00, 0x01, 0x02, 0x03, 0x04, 0x05),
			FromState: fuzz.StateAny,
			ToState:   "Locked",
		},
		{
			Payload:   fuzz.NewCommandPayload(0x01),
			FromState: "Authenticated",
			ToState:   "Unlocked",
		},
		{
			Payload:   fuzz.NewCommandPayload(0x02),
			FromState: "Unlocked",
			ToState:   "Locked",
		},
	}
}

// SynthesizeLockCommand creates one replacement device seed for an
// exhausted queue. The lock-everything command is always applicable.
func SynthesizeLockCommand(rng *rand.Rand) *fuzz.Seed {
	return &fuzz.Seed{
		Payload:   fuzz.NewCommandPayload(0x00, 0x01, 0x02, 0x03, 0x04, 0x05),
		FromState: fuzz.StateAny,
		ToState:   "Locked",
	}
}

// NewProductScheduler builds the scheduler for the stateless HTTP target.
func NewProductScheduler(rng *rand.Rand) *Scheduler {
	return NewScheduler(Options{
		Stateful:    false,
		FixedEnergy: 10,
		Decode:      fuzz.ParseRecordSeeds,
		Defaults:    ProductDefaults,
		Synthesize:  SynthesizeProduct,
	}, rng)
}

// NewLockScheduler builds the scheduler for the stateful device target.
func NewLockScheduler(rng *rand.Rand) *Scheduler {
	return NewScheduler(Options{
		Stateful:   true,
		BaseEnergy: 5,
		BonusCap:   7,
		JitterMax:  3,
		Decode:     fuzz.ParseCommandSeeds,
		Defaults:   LockDefaults,
		Synthesize: SynthesizeLockCommand,
	}, rng)
}
