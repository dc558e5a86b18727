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

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Outcome is the per-target rollup included in the combined results file.
type Outcome struct {
	TotalTests   int `json:"total_tests"`
	Crashes      int `json:"crashes"`
	UniqueIssues int `json:"unique_issues"`
}

// SeedActivity records how often one seed produced interesting behavior,
// for the session campaign's activity artifact. Seed is the seed's
// fingerprint.
type SeedActivity struct {
	Seed  string `json:"seed"`
	Count int    `json:"count"`
}

// WriteCombined writes the campaign-level rollup covering every target that
// ran.
func WriteCombined(dir string, outcomes map[string]Outcome) error {
	path := filepath.Join(dir, "combined_results.json")
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal combined results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteSeedActivity writes the session campaign's per-seed interest counts.
func WriteSeedActivity(dir string, activity []SeedActivity) error {
	path := filepath.Join(dir, "seed_activity.json")
	data, err := json.MarshalIndent(activity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal seed activity: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
