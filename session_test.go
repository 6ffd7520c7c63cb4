// session_test.go

// Copyright (C) 2026  The tellolink Authors

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package tello

import (
	"context"
	"net"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdm-ifsp/tello/internal/dronesim"
)

func testSessionConfig(drone *dronesim.Drone) SessionConfig {
	return SessionConfig{
		Channel:         testChannelConfig(drone),
		State:           StateConfig{LocalPort: 0},
		HeartbeatPeriod: 50 * time.Millisecond,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestSessionLifecycle(t *testing.T) {
	drone := startDrone(t, dronesim.AlwaysOK)
	fl, _ := openTestLog(t)
	defer fl.Close()

	frames := make(chan TelemetryFrame, 8)
	cfg := testSessionConfig(drone)
	cfg.FlightLog = fl
	cfg.OnTelemetry = func(f TelemetryFrame) { frames <- f }
	s := NewSession(cfg)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "starting twice is a no-op")
	assert.True(t, s.Running())
	assert.True(t, s.Channel().Connected())

	// SDK mode is entered straight away
	select {
	case cmd := <-drone.Commands():
		assert.Equal(t, "command", cmd)
	case <-time.After(time.Second):
		t.Fatal("no probe")
	}

	line := dronesim.StateLine(64, 120, 130)
	require.NoError(t, dronesim.BroadcastTelemetry(loopbackOf(t, s.TelemetryAddr()), line))
	select {
	case f := <-frames:
		assert.Equal(t, line, f.Line)
	case <-time.After(time.Second):
		t.Fatal("no telemetry")
	}

	rec := newRecorder()
	s.Channel().TakeOff(rec.fn)
	assert.NoError(t, rec.wait(t, 1, time.Second)[0].err)

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
	assert.False(t, s.Channel().Connected())
	assert.Nil(t, s.TelemetryAddr())
	assert.False(t, s.Streaming(), "video was never configured")

	s.Channel().Land(rec.fn)
	assert.ErrorIs(t, rec.wait(t, 1, time.Second)[0].err, ErrNotConnected)

	tel, err := fl.Telemetry(0)
	require.NoError(t, err)
	require.Len(t, tel, 1)
	assert.Equal(t, line, tel[0].Line)
	recs, err := fl.Exchanges()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(recs), 2)
}

func TestSessionStartFailsCleanly(t *testing.T) {
	drone := startDrone(t, dronesim.AlwaysOK)
	busy, err := net.ListenUDP("udp", &net.UDPAddr{})
	require.NoError(t, err)
	defer busy.Close()

	cfg := testSessionConfig(drone)
	cfg.State.LocalPort = busy.LocalAddr().(*net.UDPAddr).Port
	s := NewSession(cfg)

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.Running())
	assert.False(t, s.Channel().Connected(), "control channel is closed again")
	s.Stop()
}

func TestSessionReportsTelemetryErrors(t *testing.T) {
	drone := startDrone(t, dronesim.AlwaysOK)
	cfg := testSessionConfig(drone)
	var mu sync.Mutex
	var reported []error
	cfg.OnError = func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}
	s := NewSession(cfg)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.onStateError(assert.AnError)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], assert.AnError)
	assert.Contains(t, reported[0].Error(), "telemetry")
}

func videoSessionConfig(t *testing.T, drone *dronesim.Drone) SessionConfig {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh available")
	}
	cfg := testSessionConfig(drone)
	cfg.Video = &VideoConfig{
		LocalPort: 0,
		Decoder: DecoderConfig{
			Command:  "sh",
			Args:     []string{"-c", "cat > /dev/null"},
			FrameDir: filepath.Join(t.TempDir(), "frames"),
		},
		StreamOnDelay: 20 * time.Millisecond,
	}
	return cfg
}

func TestSessionStartsVideoAfterProbe(t *testing.T) {
	drone := startDrone(t, dronesim.AlwaysOK)
	s := NewSession(videoSessionConfig(t, drone))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, s.Streaming, 2*time.Second, 10*time.Millisecond)
	got := drone.Received()
	require.NotEmpty(t, got)
	assert.Equal(t, "command", got[0], "streamon only after SDK mode")
	assert.True(t, contains(got, "streamon"))

	s.Stop()
	assert.False(t, s.Streaming())
	got = drone.Received()
	assert.True(t, contains(got, "streamoff"))
}

func TestSessionRetriesRefusedStreamOn(t *testing.T) {
	drone := startDrone(t, dronesim.Script(map[string]dronesim.Reply{
		"streamon": {Text: "error"},
	}, dronesim.Reply{Text: "ok"}))
	s := NewSession(videoSessionConfig(t, drone))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		n := 0
		for _, c := range drone.Received() {
			if c == "streamon" {
				n++
			}
		}
		return n >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, s.Streaming())
}
