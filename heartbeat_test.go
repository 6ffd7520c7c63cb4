// heartbeat_test.go

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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdm-ifsp/tello/internal/dronesim"
)

// fakeProber resolves probes at once with err, or holds them when hold is set.
type fakeProber struct {
	mu      sync.Mutex
	calls   int
	hold    bool
	err     error
	pending []ResultFunc
}

func (p *fakeProber) Probe(onResult ResultFunc) {
	p.mu.Lock()
	p.calls++
	if p.hold {
		p.pending = append(p.pending, onResult)
		p.mu.Unlock()
		return
	}
	err := p.err
	p.mu.Unlock()
	go onResult(NewCommand(cmdCommand), err)
}

func (p *fakeProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProber) release() {
	p.mu.Lock()
	pending := p.pending
	p.pending, p.hold = nil, false
	p.mu.Unlock()
	for _, fn := range pending {
		fn(NewCommand(cmdCommand), nil)
	}
}

func TestHeartbeatProbesImmediately(t *testing.T) {
	p := &fakeProber{}
	hb := NewHeartbeatScheduler(p, HeartbeatConfig{Period: time.Hour})
	hb.Start(context.Background())
	defer hb.Stop()

	assert.Eventually(t, func() bool { return p.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, hb.Running())
}

func TestHeartbeatKeepsGoingAfterFailures(t *testing.T) {
	p := &fakeProber{err: ErrTimeout}
	var mu sync.Mutex
	var outcomes []error
	hb := NewHeartbeatScheduler(p, HeartbeatConfig{
		Period: 20 * time.Millisecond,
		OnResult: func(_ Command, err error) {
			mu.Lock()
			outcomes = append(outcomes, err)
			mu.Unlock()
		},
	})
	hb.Start(context.Background())
	defer hb.Stop()

	assert.Eventually(t, func() bool { return p.count() >= 4 }, 2*time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, outcomes)
	for _, err := range outcomes {
		assert.ErrorIs(t, err, ErrTimeout)
	}
}

func TestHeartbeatSkipsWhileProbeUnresolved(t *testing.T) {
	p := &fakeProber{hold: true}
	hb := NewHeartbeatScheduler(p, HeartbeatConfig{Period: 10 * time.Millisecond})
	hb.Start(context.Background())
	defer hb.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, p.count(), "no new probe while one is outstanding")

	p.release()
	assert.Eventually(t, func() bool { return p.count() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestHeartbeatStop(t *testing.T) {
	p := &fakeProber{}
	hb := NewHeartbeatScheduler(p, HeartbeatConfig{Period: 10 * time.Millisecond})
	hb.Start(context.Background())
	hb.Start(context.Background())
	assert.Eventually(t, func() bool { return p.count() >= 2 }, time.Second, 5*time.Millisecond)

	hb.Stop()
	assert.False(t, hb.Running())
	n := p.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, p.count())
	hb.Stop()
}

func TestHeartbeatEndsWithContext(t *testing.T) {
	p := &fakeProber{}
	ctx, cancel := context.WithCancel(context.Background())
	hb := NewHeartbeatScheduler(p, HeartbeatConfig{Period: 10 * time.Millisecond})
	hb.Start(ctx)
	assert.Eventually(t, func() bool { return p.count() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	n := p.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, p.count())
	hb.Stop()
}

func TestHeartbeatRestartsAfterContextEnds(t *testing.T) {
	p := &fakeProber{}
	ctx, cancel := context.WithCancel(context.Background())
	hb := NewHeartbeatScheduler(p, HeartbeatConfig{Period: 10 * time.Millisecond})
	hb.Start(ctx)
	assert.Eventually(t, func() bool { return p.count() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return !hb.Running() }, time.Second, 5*time.Millisecond)
	before := p.count()

	hb.Start(context.Background())
	assert.True(t, hb.Running())
	assert.Eventually(t, func() bool { return p.count() > before }, time.Second, 5*time.Millisecond,
		"a second Start sends again")
	hb.Stop()
	assert.False(t, hb.Running())
}

func TestHeartbeatOverChannel(t *testing.T) {
	drone := startDrone(t, dronesim.AlwaysOK)
	ch := connectChannel(t, testChannelConfig(drone))
	hb := NewHeartbeatScheduler(ch, HeartbeatConfig{Period: 30 * time.Millisecond})
	hb.Start(context.Background())

	assert.Eventually(t, func() bool { return len(drone.Received()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	hb.Stop()
	for _, cmd := range drone.Received() {
		assert.Equal(t, "command", cmd)
	}
}
