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

// Package devicetarget adapts an MQTT-connected wireless device session to
// the fuzzing engine. The device listens on <id>/command, answers result
// codes on <id>/response and streams firmware log lines on <id>/log. The
// adapter holds one session at a time and is not safe for concurrent
// Execute calls; the campaign driver serializes access.
package devicetarget

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

// Options configures the adapter.
type Options struct {
	// BrokerURL is the MQTT broker, e.g. tcp://localhost:1883.
	BrokerURL string
	// DeviceID prefixes the command/response/log topics.
	DeviceID string
	// ClientID identifies this fuzzer session on the broker.
	ClientID string
	// Timeout bounds connect, publish and response waits.
	Timeout time.Duration
}

// Adapter drives one device session.
type Adapter struct {
	opts   Options
	client mqtt.Client

	mu      sync.Mutex
	respCh  chan []byte
	logLine string
	haveLog bool
}

// New builds a disconnected adapter; the driver calls Connect before the
// first Execute.
func New(opts Options) *Adapter {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ClientID == "" {
		opts.ClientID = fmt.Sprintf("fuzzer-go-%d", time.Now().UnixNano())
	}
	return &Adapter{
		opts:   opts,
		respCh: make(chan []byte, 1),
	}
}

func (a *Adapter) topic(suffix string) string {
	return a.opts.DeviceID + "/" + suffix
}

// Connect implements fuzz.SessionAdapter. Auto-reconnect is disabled on
// purpose: the recovery manager owns the reconnect policy.
func (a *Adapter) Connect(ctx context.Context) error {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(a.opts.BrokerURL).
		SetClientID(a.opts.ClientID).
		SetConnectTimeout(a.opts.Timeout).
		SetAutoReconnect(false).
		SetCleanSession(true)

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(a.opts.Timeout) {
		return fmt.Errorf("connect to %s timed out", a.opts.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s failed: %w", a.opts.BrokerURL, err)
	}

	respToken := client.Subscribe(a.topic("response"), 1, a.onResponse)
	if !respToken.WaitTimeout(a.opts.Timeout) || respToken.Error() != nil {
		client.Disconnect(0)
		return fmt.Errorf("subscribe to %s failed: %v", a.topic("response"), respToken.Error())
	}
	logToken := client.Subscribe(a.topic("log"), 1, a.onLog)
	if !logToken.WaitTimeout(a.opts.Timeout) || logToken.Error() != nil {
		client.Disconnect(0)
		return fmt.Errorf("subscribe to %s failed: %v", a.topic("log"), logToken.Error())
	}

	a.client = client
	return nil
}

// Disconnect implements fuzz.SessionAdapter.
func (a *Adapter) Disconnect() error {
	if a.client == nil {
		return nil
	}
	a.client.Disconnect(250)
	a.client = nil
	return nil
}

func (a *Adapter) onResponse(_ mqtt.Client, msg mqtt.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	// Keep only the newest pending response.
	select {
	case <-a.respCh:
	default:
	}
	select {
	case a.respCh <- payload:
	default:
	}
}

func (a *Adapter) onLog(_ mqtt.Client, msg mqtt.Message) {
	a.mu.Lock()
	a.logLine = string(msg.Payload())
	a.haveLog = true
	a.mu.Unlock()
}

// takeLog returns the most recent log line observed since the previous
// call, or the no-logs placeholder.
func (a *Adapter) takeLog() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.haveLog {
		return "[!] No logs"
	}
	a.haveLog = false
	return a.logLine
}

// Execute implements fuzz.Adapter: publish one command, wait for a
// response, and collect the latest device log line. Transport failures are
// captured with a synthesized log excerpt so state tracking still has a
// value to inspect.
func (a *Adapter) Execute(ctx context.Context, tc *fuzz.TestCase) *fuzz.Result {
	start := time.Now()

	if a.client == nil || !a.client.IsConnected() {
		return fatalResult(start, fmt.Errorf("session not connected"))
	}

	wire, err := tc.Payload.WireBytes()
	if err != nil {
		return fatalResult(start, fmt.Errorf("unserializable command: %w", err))
	}

	// Drop any stale response from a previous timed-out execution.
	select {
	case <-a.respCh:
	default:
	}

	token := a.client.Publish(a.topic("command"), 1, false, wire)
	if !token.WaitTimeout(a.opts.Timeout) {
		return fatalResult(start, fmt.Errorf("publish timed out"))
	}
	if err := token.Error(); err != nil {
		return fatalResult(start, fmt.Errorf("publish failed: %w", err))
	}

	timer := time.NewTimer(a.opts.Timeout)
	defer timer.Stop()

	select {
	case raw := <-a.respCh:
		return &fuzz.Result{
			Response: parseCodes(raw),
			LogLine:  a.takeLog(),
			Elapsed:  time.Since(start),
		}
	case <-timer.C:
		return &fuzz.Result{
			LogLine: a.takeLog(),
			Elapsed: time.Since(start),
			Err: &fuzz.ExecError{
				Kind: fuzz.KindTimeout,
				Msg:  fmt.Sprintf("no response within %s", a.opts.Timeout),
			},
		}
	case <-ctx.Done():
		return &fuzz.Result{
			LogLine: a.takeLog(),
			Elapsed: time.Since(start),
			Err: &fuzz.ExecError{
				Kind: fuzz.KindTimeout,
				Msg:  ctx.Err().Error(),
			},
		}
	}
}

func fatalResult(start time.Time, err error) *fuzz.Result {
	return &fuzz.Result{
		LogLine: fmt.Sprintf("[!] Exception: %v", err),
		Elapsed: time.Since(start),
		Err:     &fuzz.ExecError{Kind: fuzz.KindFatal, Msg: err.Error()},
	}
}

// parseCodes decodes a device response: a JSON array of result codes.
// Anything unparsable yields an empty code list, which the oracle treats
// as interesting.
func parseCodes(raw []byte) *fuzz.CodeResponse {
	var values []interface{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return &fuzz.CodeResponse{}
	}
	codes := make([]int, 0, len(values))
	for _, v := range values {
		if f, ok := v.(float64); ok {
			codes = append(codes, int(f))
		}
	}
	return &fuzz.CodeResponse{Codes: codes}
}
