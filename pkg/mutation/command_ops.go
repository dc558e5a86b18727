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

package mutation

import (
	"math/rand"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

// boundaryBytePool is the fixed pool of boundary byte substitutions.
var boundaryBytePool = []byte{0x00, 0xFF, 0x7F, 0x80}

// CommandOperators returns the operator set for byte-sequence command
// payloads (the device target).
func CommandOperators() []fuzz.Operator {
	return []fuzz.Operator{
		operator{"bit_flip", bitFlip},
		operator{"remove_field", removeCommandByte},
		operator{"invalid_type", invalidCommandType},
		operator{"boundary_value", boundaryBytes},
	}
}

func command(p fuzz.Payload) *fuzz.CommandPayload {
	return p.Clone().(*fuzz.CommandPayload)
}

// bitFlip XORs one randomly chosen byte with a random single-bit mask.
// No-op on an empty command or when the chosen element holds junk.
func bitFlip(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := command(p)
	if out.Len() == 0 {
		return out
	}
	idx := rng.Intn(out.Len())
	mask := byte(1) << uint(rng.Intn(8))
	elem := out.Elem(idx)
	if elem.IsJunk {
		return out
	}
	out.SetNum(idx, elem.Num^mask)
	return out
}

// removeCommandByte deletes one element. No-op when the command has at most
// one element, so a seed can never shrink to nothing.
func removeCommandByte(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := command(p)
	if out.Len() <= 1 {
		return out
	}
	out.Remove(rng.Intn(out.Len()))
	return out
}

// invalidCommandType replaces one element with a junk string the device
// cannot interpret as a byte. No-op on an empty command.
func invalidCommandType(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := command(p)
	if out.Len() == 0 {
		return out
	}
	out.SetJunk(rng.Intn(out.Len()), "invalid")
	return out
}

// boundaryBytes substitutes boundary values element-wise with independent
// probability 0.4 each.
func boundaryBytes(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := command(p)
	for i := 0; i < out.Len(); i++ {
		if rng.Float64() < 0.4 {
			out.SetNum(i, boundaryBytePool[rng.Intn(len(boundaryBytePool))])
		}
	}
	return out
}
