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
	"math"
	"math/rand"
	"strings"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

const flipCharset = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// recordTargets are the well-known fields the record operators act on.
var recordTargets = []string{"name", "info", "price"}

// invalidTypePool is the fixed pool of shape-incompatible replacement
// values used by the type-confusion operator.
var invalidTypePool = []interface{}{
	nil,
	[]interface{}{},
	map[string]interface{}{},
	true,
	[]byte{},
}

// boundaryPricePool is the fixed pool of extreme numeric substitutions for
// the price field.
var boundaryPricePool = []interface{}{
	float64(-1),
	float64(math.MaxInt32),
	"\U0001F4B0\U0001F4B0\U0001F4B0",
	math.NaN(),
	0.000001,
	math.Inf(1),
}

// RecordOperators returns the operator set for key/value record payloads
// (the HTTP target).
func RecordOperators() []fuzz.Operator {
	return []fuzz.Operator{
		operator{"flip_char", flipChar},
		operator{"remove_field", removeRecordField},
		operator{"invalid_type", invalidRecordType},
		operator{"boundary_value", boundaryPrice},
		operator{"division_by_zero", divisionByZero},
		operator{"malformed_json", malformedRecord},
		operator{"empty_value", emptyRecordValue},
		operator{"extremely_long_value", extremelyLongValue},
	}
}

func record(p fuzz.Payload) *fuzz.RecordPayload {
	return p.Clone().(*fuzz.RecordPayload)
}

// flipChar replaces one character of the name with a symbol. No-op when the
// name is absent, not a string, or empty.
func flipChar(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := record(p)
	v, ok := out.Get("name")
	if !ok {
		return out
	}
	name, ok := v.(string)
	if !ok || name == "" {
		return out
	}
	runes := []rune(name)
	pos := rng.Intn(len(runes))
	runes[pos] = rune(flipCharset[rng.Intn(len(flipCharset))])
	out.Set("name", string(runes))
	return out
}

// removeRecordField deletes one of the present well-known fields. No-op
// when none of them is present.
func removeRecordField(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := record(p)
	present := make([]string, 0, len(recordTargets))
	for _, key := range recordTargets {
		if out.Has(key) {
			present = append(present, key)
		}
	}
	if len(present) == 0 {
		return out
	}
	out.Remove(present[rng.Intn(len(present))])
	return out
}

// invalidRecordType replaces one well-known field with a value of an
// incompatible shape from the fixed pool.
func invalidRecordType(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := record(p)
	key := recordTargets[rng.Intn(len(recordTargets))]
	out.Set(key, invalidTypePool[rng.Intn(len(invalidTypePool))])
	return out
}

// boundaryPrice substitutes an extreme value for the price. No-op when the
// record has no price field.
func boundaryPrice(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := record(p)
	if !out.Has("price") {
		return out
	}
	out.Set("price", boundaryPricePool[rng.Intn(len(boundaryPricePool))])
	return out
}

// divisionByZero plants a divide_by field set to zero.
func divisionByZero(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := record(p)
	out.Set("divide_by", 0)
	return out
}

// malformedRecord discards the seed content entirely and substitutes a
// fixed structurally-odd record, probing parser robustness rather than
// seed-guided exploration.
func malformedRecord(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	return fuzz.NewRecordPayload(
		fuzz.RecordField{Key: "name", Value: "TestItem"},
		fuzz.RecordField{Key: "price", Value: float64(100)},
		fuzz.RecordField{Key: "info", Value: "Sample"},
		fuzz.RecordField{Key: "extra_field", Value: "Something extra,}"},
	)
}

// emptyRecordValue blanks one well-known field.
func emptyRecordValue(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := record(p)
	out.Set(recordTargets[rng.Intn(len(recordTargets))], "")
	return out
}

// extremelyLongValue substitutes an oversized value to probe resource
// limits: a 10^200 magnitude price, or an info string far exceeding any
// expected length.
func extremelyLongValue(p fuzz.Payload, rng *rand.Rand) fuzz.Payload {
	out := record(p)
	if rng.Intn(2) == 0 {
		out.Set("price", math.Pow(10, 200))
	} else {
		out.Set("info", strings.Repeat("A", 10000))
	}
	return out
}
