// heartbeat.go

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
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultHeartbeatPeriod = 5 * time.Second

// Prober is anything that can send the keep-alive probe, eg. a CommandChannel.
type Prober interface {
	Probe(onResult ResultFunc)
}

// HeartbeatConfig holds the settings for a HeartbeatScheduler.
type HeartbeatConfig struct {
	Period time.Duration // defaults to 5s
	Logger *zap.Logger
	// OnResult, if set, sees every probe outcome after the scheduler has logged it.
	OnResult ResultFunc
}

// HeartbeatScheduler probes the drone periodically so it does not land itself
// when the link goes quiet.
type HeartbeatScheduler struct {
	prober Prober
	cfg    HeartbeatConfig
	logger *zap.Logger

	inFlight atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHeartbeatScheduler creates a stopped scheduler for p.
func NewHeartbeatScheduler(p Prober, cfg HeartbeatConfig) *HeartbeatScheduler {
	if cfg.Period <= 0 {
		cfg.Period = defaultHeartbeatPeriod
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeartbeatScheduler{prober: p, cfg: cfg, logger: logger.Named("heartbeat")}
}

// Start sends a probe at once and then every period until Stop is called or ctx ends.
// Starting a running scheduler does nothing. Once ctx ends the scheduler is stopped and can be started again.
func (h *HeartbeatScheduler) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return
	}
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	go h.keepAlive(ctx, h.done)
	h.logger.Info("heartbeat started", zap.Duration("period", h.cfg.Period))
}

// Stop ends the schedule and waits for the ticker goroutine to exit.
// Probes already handed to the channel still resolve there.
func (h *HeartbeatScheduler) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	h.logger.Info("heartbeat stopped")
}

// Running reports whether the schedule is active.
func (h *HeartbeatScheduler) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil
}

func (h *HeartbeatScheduler) keepAlive(ctx context.Context, done chan struct{}) {
	defer close(done)
	// a run ended by its context leaves the scheduler stopped, so Start works again
	defer func() {
		h.mu.Lock()
		if h.done == done {
			h.cancel()
			h.cancel, h.done = nil, nil
			h.logger.Info("heartbeat ended with its context")
		}
		h.mu.Unlock()
	}()
	ticker := time.NewTicker(h.cfg.Period)
	defer ticker.Stop()

	for {
		h.beat()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *HeartbeatScheduler) beat() {
	if !h.inFlight.CompareAndSwap(false, true) {
		h.logger.Debug("previous probe unresolved, skipping")
		return
	}
	h.prober.Probe(func(cmd Command, err error) {
		h.inFlight.Store(false)
		if err != nil {
			h.logger.Warn("probe failed", zap.Error(err))
		} else {
			h.logger.Debug("probe ok")
		}
		if h.cfg.OnResult != nil {
			h.cfg.OnResult(cmd, err)
		}
	})
}
