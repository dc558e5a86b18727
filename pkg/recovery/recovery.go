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

// Package recovery restores a usable session after a fatal transport
// error: best-effort disconnect, a fixed backoff, then a single reconnect
// attempt. It never retries within one recovery; the next scheduler
// iteration gets a fresh attempt through the normal execution path.
package recovery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

// DefaultBackoff is the wait between disconnect and reconnect.
const DefaultBackoff = 1500 * time.Millisecond

// Manager drives the recovery protocol for one session adapter.
type Manager struct {
	adapter fuzz.SessionAdapter
	backoff time.Duration
}

// New builds a manager with the default backoff.
func New(adapter fuzz.SessionAdapter) *Manager {
	return &Manager{adapter: adapter, backoff: DefaultBackoff}
}

// NewWithBackoff builds a manager with a custom backoff, for tests.
func NewWithBackoff(adapter fuzz.SessionAdapter, backoff time.Duration) *Manager {
	return &Manager{adapter: adapter, backoff: backoff}
}

// ShouldRecover reports whether the result signals a connection-level
// failure. Application errors and timeouts leave the session usable and do
// not trigger recovery.
func (m *Manager) ShouldRecover(res *fuzz.Result) bool {
	return res.Err != nil && res.Err.Kind == fuzz.KindFatal
}

// Recover runs the recovery protocol once: disconnect (errors swallowed,
// the session is already broken), wait out the backoff, reconnect. A
// reconnect failure is returned to the caller, which abandons the current
// seed's remaining energy budget.
func (m *Manager) Recover(ctx context.Context) error {
	log.Printf("[*] Reconnecting after crash...")
	if err := m.adapter.Disconnect(); err != nil {
		log.Printf("[!] Disconnect during recovery failed: %v", err)
	}
	select {
	case <-time.After(m.backoff):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := m.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("reconnect failed: %w", err)
	}
	return nil
}
