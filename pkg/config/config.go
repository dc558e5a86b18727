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

// Package config provides configuration management for fuzzer-go: campaign
// settings for both targets, loadable from YAML or JSON files with sensible
// defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Target selector values.
const (
	TargetHTTP   = "http"
	TargetDevice = "device"
	TargetBoth   = "both"
)

// CampaignConfig holds the settings of one fuzzing run.
type CampaignConfig struct {
	// Target selects which campaigns run: http, device or both.
	Target string `yaml:"target" json:"target"`
	// Iterations caps the number of scheduler rounds per campaign.
	Iterations int `yaml:"iterations" json:"iterations"`
	// TimeoutSeconds bounds each execute call.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
	// OutputDir is the base name of the result directory; a timestamp
	// suffix is appended per run.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	HTTPURL      string `yaml:"http_url" json:"http_url"`
	HTTPSeedFile string `yaml:"http_seed_file" json:"http_seed_file"`

	BrokerURL      string `yaml:"broker_url" json:"broker_url"`
	DeviceID       string `yaml:"device_id" json:"device_id"`
	DeviceSeedFile string `yaml:"device_seed_file" json:"device_seed_file"`

	// MetricsPort exposes Prometheus metrics when non-empty.
	MetricsPort string `yaml:"metrics_port" json:"metrics_port"`
	// EnableCoverage is forwarded to the external coverage collaborator;
	// it changes no core behavior.
	EnableCoverage bool `yaml:"enable_coverage" json:"enable_coverage"`
	// PostgresDSN enables the optional failure-record database sink.
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

// Config holds the complete configuration.
type Config struct {
	Campaign CampaignConfig `yaml:"campaign" json:"campaign"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Campaign: CampaignConfig{
			Target:         TargetBoth,
			Iterations:     100,
			TimeoutSeconds: 10,
			OutputDir:      "fuzzing_results",
			HTTPURL:        "http://127.0.0.1:8000/datatb/product/",
			HTTPSeedFile:   "seeds/http.json",
			BrokerURL:      "tcp://localhost:1883",
			DeviceID:       "smartlock",
			DeviceSeedFile: "seeds/device.json",
			MetricsPort:    "",
			EnableCoverage: false,
		},
	}
}

// LoadConfig loads configuration from a file. An empty path returns the
// defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	ext := strings.ToLower(filepath.Ext(configPath))

	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration. Callers that modify a loaded config
// (such as command-line overrides) must re-validate before use.
func (c *Config) Validate() error {
	if err := validateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(config *Config, configPath string) error {
	var data []byte
	var err error

	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configPath, err)
	}

	return nil
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	c := &config.Campaign

	switch c.Target {
	case TargetHTTP, TargetDevice, TargetBoth:
	default:
		return fmt.Errorf("unsupported target: %s (supported: %s, %s, %s)",
			c.Target, TargetHTTP, TargetDevice, TargetBoth)
	}

	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}

	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}

	if c.Target != TargetDevice && c.HTTPURL == "" {
		return fmt.Errorf("http_url cannot be empty for target %s", c.Target)
	}

	if c.Target != TargetHTTP {
		if c.BrokerURL == "" {
			return fmt.Errorf("broker_url cannot be empty for target %s", c.Target)
		}
		if c.DeviceID == "" {
			return fmt.Errorf("device_id cannot be empty for target %s", c.Target)
		}
	}

	return nil
}

// WantsHTTP reports whether the HTTP campaign should run.
func (c *Config) WantsHTTP() bool {
	return c.Campaign.Target == TargetHTTP || c.Campaign.Target == TargetBoth
}

// WantsDevice reports whether the device campaign should run.
func (c *Config) WantsDevice() bool {
	return c.Campaign.Target == TargetDevice || c.Campaign.Target == TargetBoth
}
