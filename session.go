// session.go

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
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultStreamOnDelay = 1 * time.Second

// VideoConfig enables the video pipeline of a Session.
type VideoConfig struct {
	LocalPort int           // where the drone sends video, usually DefaultVideoPort
	Decoder   DecoderConfig // FrameDir must be set
	// StreamOnDelay is how long after the first good probe "streamon" is sent.
	StreamOnDelay time.Duration
}

// SessionConfig holds everything a Session owns.
type SessionConfig struct {
	Channel         ChannelConfig
	State           StateConfig
	HeartbeatPeriod time.Duration
	Video           *VideoConfig // nil disables video
	FlightLog       *FlightLog   // optional, records exchanges and telemetry
	Logger          *zap.Logger

	OnTelemetry func(TelemetryFrame)
	OnError     func(error) // control or telemetry socket failures
	OnFrame     FrameSink
}

// Session ties a CommandChannel, its HeartbeatScheduler, a StateListener and
// optionally the video pipeline to one Start/Stop lifecycle.
type Session struct {
	cfg    SessionConfig
	logger *zap.Logger

	channel   *CommandChannel
	heartbeat *HeartbeatScheduler
	state     *StateListener
	relay     *VideoRelay
	decoder   *Decoder
	frames    *FrameWatcher

	mu              sync.Mutex
	running         bool
	ctx             context.Context
	cancel          context.CancelFunc
	streamRequested bool
	streaming       bool
	videoFailed     bool
	streamTimer     *time.Timer
}

// NewSession wires up the components described by cfg without starting them.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{cfg: cfg, logger: logger.Named("session")}

	chCfg := cfg.Channel
	if chCfg.Logger == nil {
		chCfg.Logger = logger
	}
	if cfg.FlightLog != nil {
		chCfg.Journal = cfg.FlightLog
	}
	chCfg.OnError = s.onChannelError
	s.channel = NewCommandChannel(chCfg)

	s.heartbeat = NewHeartbeatScheduler(s.channel, HeartbeatConfig{
		Period:   cfg.HeartbeatPeriod,
		Logger:   logger,
		OnResult: s.onProbe,
	})

	stCfg := cfg.State
	if stCfg.Logger == nil {
		stCfg.Logger = logger
	}
	s.state = NewStateListener(stCfg)

	if cfg.Video != nil {
		v := *cfg.Video
		if v.StreamOnDelay <= 0 {
			v.StreamOnDelay = defaultStreamOnDelay
		}
		s.cfg.Video = &v
		decCfg := v.Decoder
		if decCfg.Logger == nil {
			decCfg.Logger = logger
		}
		s.decoder = NewDecoder(decCfg)
		s.relay = NewVideoRelay(v.LocalPort, logger)
		s.frames = NewFrameWatcher(decCfg.FrameDir, cfg.OnFrame, logger)
	}
	return s
}

// Channel gives access to the command API.
func (s *Session) Channel() *CommandChannel {
	return s.channel
}

// TelemetryAddr is where the state listener is bound, or nil when stopped.
func (s *Session) TelemetryAddr() net.Addr {
	return s.state.Addr()
}

// Running reports whether the session has been started and not stopped.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Streaming reports whether the drone acknowledged "streamon" and the video pipeline is up.
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Start connects the control channel, starts listening for telemetry and begins the heartbeat.
// If any step fails the steps already taken are undone.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if err := s.channel.Connect(); err != nil {
		return fmt.Errorf("connecting control channel: %w", err)
	}
	if err := s.state.Start(s.onTelemetry, s.onStateError); err != nil {
		s.channel.Disconnect()
		return fmt.Errorf("starting state listener: %w", err)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.videoFailed = false
	s.heartbeat.Start(s.ctx)
	s.logger.Info("session started")
	return nil
}

// Stop undoes Start: heartbeat first, then video (asking the drone to stop streaming),
// telemetry, and finally the control channel, which cancels anything still outstanding.
// It waits for the streamoff result, so it must not be called from a ResultFunc.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	streaming := s.streaming
	s.streaming, s.streamRequested = false, false
	if s.streamTimer != nil {
		s.streamTimer.Stop()
		s.streamTimer = nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	s.heartbeat.Stop()
	if streaming {
		done := make(chan struct{})
		s.channel.SetVideoStream(false, func(_ Command, err error) {
			if err != nil {
				s.logger.Warn("streamoff failed", zap.Error(err))
			}
			close(done)
		})
		<-done
	}
	s.stopVideo()
	s.state.Stop()
	s.channel.Disconnect()
	cancel()
	s.logger.Info("session stopped")
}

func (s *Session) onTelemetry(frame TelemetryFrame) {
	if s.cfg.FlightLog != nil {
		s.cfg.FlightLog.RecordTelemetry(frame)
	}
	if s.cfg.OnTelemetry != nil {
		s.cfg.OnTelemetry(frame)
	}
}

func (s *Session) onStateError(err error) {
	s.reportError(fmt.Errorf("telemetry: %w", err))
}

func (s *Session) onChannelError(err error) {
	s.reportError(fmt.Errorf("control: %w", err))
}

func (s *Session) reportError(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}

// onProbe asks for video after the first good probe, as the drone only accepts
// "streamon" once it is in SDK mode.
func (s *Session) onProbe(_ Command, err error) {
	if err != nil || s.cfg.Video == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.streamRequested || s.videoFailed {
		return
	}
	s.streamRequested = true
	s.streamTimer = time.AfterFunc(s.cfg.Video.StreamOnDelay, func() {
		s.channel.SetVideoStream(true, s.onStreamOn)
	})
}

func (s *Session) onStreamOn(_ Command, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Warn("streamon failed, will retry after next probe", zap.Error(err))
		s.streamRequested = false
		return
	}
	if !s.running || s.streaming {
		return
	}
	if err := s.startVideoLocked(); err != nil {
		s.videoFailed = true
		s.logger.Error("video pipeline failed to start", zap.Error(err))
		go s.reportError(fmt.Errorf("video: %w", err))
		return
	}
	s.streaming = true
}

func (s *Session) startVideoLocked() error {
	if err := s.frames.Start(s.ctx); err != nil {
		return err
	}
	if err := s.decoder.Start(s.ctx); err != nil {
		s.frames.Stop()
		return err
	}
	if err := s.relay.Start(s.decoder); err != nil {
		s.decoder.Stop()
		s.frames.Stop()
		return err
	}
	return nil
}

func (s *Session) stopVideo() {
	if s.cfg.Video == nil {
		return
	}
	s.relay.Stop()
	s.decoder.Stop()
	if err := s.frames.Stop(); err != nil {
		s.logger.Debug("frame watcher close", zap.Error(err))
	}
}
