// state.go

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
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TelemetryFrame is one state broadcast from the drone, unparsed.
type TelemetryFrame struct {
	Line       string    `json:"line"`
	ReceivedAt time.Time `json:"received_at"`
}

// StateConfig holds the settings for a StateListener.
type StateConfig struct {
	LocalPort int // 0 binds any free port, see DefaultStateConfig
	Logger    *zap.Logger
}

// DefaultStateConfig listens where the drone broadcasts its state.
func DefaultStateConfig() StateConfig {
	return StateConfig{LocalPort: defaultLocalStatePort}
}

// StateListener passively receives telemetry broadcasts on their own port.
// It has no request/response coupling with the CommandChannel.
type StateListener struct {
	cfg    StateConfig
	logger *zap.Logger

	mu      sync.Mutex
	conn    *net.UDPConn
	done    chan struct{}
	stopped bool
}

// NewStateListener creates a stopped listener.
func NewStateListener(cfg StateConfig) *StateListener {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateListener{cfg: cfg, logger: logger.Named("state")}
}

// Start binds the telemetry port and forwards every datagram to onTelemetry.
// If the socket fails the loop ends and onError (which may be nil) is called once;
// the listener is not restarted.
func (s *StateListener) Start(onTelemetry func(TelemetryFrame), onError func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return errors.New("state listener already running")
	}
	conn, err := listenLocal(s.cfg.LocalPort)
	if err != nil {
		return err
	}
	s.conn = conn
	s.stopped = false
	s.done = make(chan struct{})
	go s.stateListener(conn, s.done, onTelemetry, onError)
	s.logger.Info("state listener started", zap.Stringer("addr", conn.LocalAddr()))
	return nil
}

// Stop closes the socket and waits for the receive loop to end.
func (s *StateListener) Stop() {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn = nil
	s.stopped = true
	s.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Close()
	<-done
	s.logger.Info("state listener stopped")
}

// Addr returns the bound address, or nil when not running.
func (s *StateListener) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *StateListener) stateListener(conn *net.UDPConn, done chan struct{}, onTelemetry func(TelemetryFrame), onError func(error)) {
	defer close(done)
	buff := make([]byte, rxBufferSize)

	for {
		n, _, err := conn.ReadFromUDP(buff)
		if err != nil {
			s.mu.Lock()
			stopping := s.stopped
			if s.conn == conn {
				s.conn = nil
			}
			s.mu.Unlock()
			if stopping {
				return
			}
			conn.Close()
			s.logger.Error("state listener failed", zap.Error(err))
			if onError != nil {
				onError(err)
			}
			return
		}
		frame := TelemetryFrame{
			Line:       strings.TrimRight(string(buff[:n]), "\r\n"),
			ReceivedAt: time.Now(),
		}
		if onTelemetry != nil {
			onTelemetry(frame)
		}
	}
}
