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

package devicetarget

import (
	"context"
	"net"
	"testing"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fuzzer-go/pkg/fuzz"
)

// startBroker runs an embedded MQTT broker on a free local port and returns
// its URL.
func startBroker(t *testing.T) (*mochi.Server, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	server := mochi.New(&mochi.Options{InlineClient: true})
	require.NoError(t, server.AddHook(new(auth.AllowHook), nil))
	require.NoError(t, server.AddListener(listeners.NewTCP(listeners.Config{ID: "test", Address: addr})))
	go server.Serve()
	t.Cleanup(func() { server.Close() })

	return server, "tcp://" + addr
}

// fakeDevice subscribes to the command topic via the broker's inline client
// and answers each command on the response and log topics.
func fakeDevice(t *testing.T, server *mochi.Server, deviceID, response, logLine string) {
	t.Helper()
	err := server.Subscribe(deviceID+"/command", 1, func(cl *mochi.Client, sub packets.Subscription, pk packets.Packet) {
		if logLine != "" {
			server.Publish(deviceID+"/log", []byte(logLine), false, 0)
			// Let the log delivery land before the response unblocks the
			// adapter.
			time.Sleep(100 * time.Millisecond)
		}
		if response != "" {
			server.Publish(deviceID+"/response", []byte(response), false, 0)
		}
	})
	require.NoError(t, err)
}

func lockCase(nums ...byte) *fuzz.TestCase {
	return &fuzz.TestCase{
		Payload:  fuzz.NewCommandPayload(nums...),
		Operator: "bit_flip",
	}
}

func TestExecuteRoundTrip(t *testing.T) {
	server, url := startBroker(t)
	fakeDevice(t, server, "lock1", "[0, 1]", "[Info] Device Locked")

	adapter := New(Options{BrokerURL: url, DeviceID: "lock1", Timeout: 5 * time.Second})
	require.NoError(t, adapter.Connect(context.Background()))
	defer adapter.Disconnect()

	res := adapter.Execute(context.Background(), lockCase(0x00, 0x01))
	require.Nil(t, res.Err)

	codes, ok := res.Response.(*fuzz.CodeResponse)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, codes.Codes)
	assert.True(t, codes.OK())
	assert.Equal(t, "[Info] Device Locked", res.LogLine)
}

func TestExecuteTimeoutWhenDeviceSilent(t *testing.T) {
	server, url := startBroker(t)
	// Device consumes commands but never answers.
	fakeDevice(t, server, "lock2", "", "")

	adapter := New(Options{BrokerURL: url, DeviceID: "lock2", Timeout: 200 * time.Millisecond})
	require.NoError(t, adapter.Connect(context.Background()))
	defer adapter.Disconnect()

	res := adapter.Execute(context.Background(), lockCase(0x01))
	require.NotNil(t, res.Err)
	assert.Equal(t, fuzz.KindTimeout, res.Err.Kind)
	assert.Equal(t, "[!] No logs", res.LogLine)
}

func TestExecuteUnparsableResponse(t *testing.T) {
	server, url := startBroker(t)
	fakeDevice(t, server, "lock3", "garbage", "[Error] parse failed")

	adapter := New(Options{BrokerURL: url, DeviceID: "lock3", Timeout: 5 * time.Second})
	require.NoError(t, adapter.Connect(context.Background()))
	defer adapter.Disconnect()

	res := adapter.Execute(context.Background(), lockCase(0x01))
	require.Nil(t, res.Err)

	codes, ok := res.Response.(*fuzz.CodeResponse)
	require.True(t, ok)
	assert.Empty(t, codes.Codes)
}

func TestExecuteWithoutConnectIsFatal(t *testing.T) {
	adapter := New(Options{BrokerURL: "tcp://127.0.0.1:1", DeviceID: "lock4", Timeout: time.Second})

	res := adapter.Execute(context.Background(), lockCase(0x01))
	require.NotNil(t, res.Err)
	assert.Equal(t, fuzz.KindFatal, res.Err.Kind)
	assert.Contains(t, res.LogLine, "Exception")
}

func TestConnectFailsWhenBrokerUnreachable(t *testing.T) {
	adapter := New(Options{BrokerURL: "tcp://127.0.0.1:1", DeviceID: "lock5", Timeout: 500 * time.Millisecond})
	assert.Error(t, adapter.Connect(context.Background()))
}

func TestReconnectAfterDisconnect(t *testing.T) {
	server, url := startBroker(t)
	fakeDevice(t, server, "lock6", "[0]", "[Info] Device Locked")

	adapter := New(Options{BrokerURL: url, DeviceID: "lock6", Timeout: 5 * time.Second})
	require.NoError(t, adapter.Connect(context.Background()))
	require.NoError(t, adapter.Disconnect())
	require.NoError(t, adapter.Connect(context.Background()))
	defer adapter.Disconnect()

	res := adapter.Execute(context.Background(), lockCase(0x00))
	require.Nil(t, res.Err)
	assert.True(t, res.Response.(*fuzz.CodeResponse).OK())
}
