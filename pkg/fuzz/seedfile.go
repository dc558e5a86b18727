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

package fuzz

import (
	"encoding/json"
	"fmt"
)

// ParseRecordSeeds decodes an HTTP-style seed file: a JSON array of
// key/value records.
func ParseRecordSeeds(data []byte) ([]*Seed, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse record seed file: %w", err)
	}
	seeds := make([]*Seed, 0, len(raw))
	for _, m := range raw {
		seeds = append(seeds, &Seed{Payload: RecordFromMap(m)})
	}
	return seeds, nil
}

type commandSeedFile struct {
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	Command   []int  `json:"command"`
}

// ParseCommandSeeds decodes a session-style seed file: a JSON array of
// {from_state, to_state, command} records whose commands are byte-range
// integers.
func ParseCommandSeeds(data []byte) ([]*Seed, error) {
	var raw []commandSeedFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse command seed file: %w", err)
	}
	seeds := make([]*Seed, 0, len(raw))
	for i, entry := range raw {
		nums := make([]byte, len(entry.Command))
		for j, v := range entry.Command {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("seed %d: command byte %d out of range: %d", i, j, v)
			}
			nums[j] = byte(v)
		}
		seeds = append(seeds, &Seed{
			Payload:   NewCommandPayload(nums...),
			FromState: entry.FromState,
			ToState:   entry.ToState,
		})
	}
	return seeds, nil
}
