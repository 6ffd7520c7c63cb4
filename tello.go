// tello.go

// Copyright (C) 2018  Steve Merrony
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
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultReplyTimeout = 500 * time.Millisecond

// ResultFunc receives the outcome of one command, exactly once.
// err is nil when the drone replied "ok".
type ResultFunc func(cmd Command, err error)

// ExchangeJournal is told about every resolved exchange, in resolution order.
type ExchangeJournal interface {
	RecordExchange(ExchangeRecord)
}

// ExchangeRecord describes one resolved command/reply exchange.
type ExchangeRecord struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	IssuedAt   time.Time `json:"issued_at"`
	ResolvedAt time.Time `json:"resolved_at"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
}

// ChannelConfig holds the settings for a CommandChannel.
// Zero values for DroneAddr, DronePort and ReplyTimeout select the defaults;
// LocalPort 0 binds any free port.
type ChannelConfig struct {
	DroneAddr    string
	DronePort    int
	LocalPort    int
	ReplyTimeout time.Duration
	Logger       *zap.Logger
	Journal      ExchangeJournal
	// OnError is called once if the receive side fails and the channel shuts itself down.
	OnError func(error)
}

// DefaultChannelConfig returns the settings for a drone on its own access point.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		DroneAddr:    defaultTelloAddr,
		DronePort:    defaultTelloControlPort,
		LocalPort:    defaultLocalControlPort,
		ReplyTimeout: defaultReplyTimeout,
	}
}

// CommandChannel is a command/acknowledgement session with a drone.
// At most one command is in flight; later ones wait in a FIFO queue.
type CommandChannel struct {
	cfg    ChannelConfig
	logger *zap.Logger

	ctrlMu   sync.Mutex // this mutex protects the control fields
	ctrlConn *net.UDPConn
	rxDone   chan struct{} // closed when the receive loop exits
	pending  *exchange     // the one exchange awaiting a reply
	queue    []*exchange

	outMu      sync.Mutex // this mutex protects the outbox
	outbox     []resolution
	delivering bool
}

type exchange struct {
	id       uuid.UUID
	cmd      Command
	onResult ResultFunc
	timer    *time.Timer
}

type resolution struct {
	ex  *exchange
	err error
	at  time.Time
}

// NewCommandChannel creates an unconnected channel.
func NewCommandChannel(cfg ChannelConfig) *CommandChannel {
	if cfg.DroneAddr == "" {
		cfg.DroneAddr = defaultTelloAddr
	}
	if cfg.DronePort == 0 {
		cfg.DronePort = defaultTelloControlPort
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaultReplyTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandChannel{cfg: cfg, logger: logger.Named("control")}
}

// Connect opens the control socket and starts listening for replies.
// It does nothing if the channel is already connected.
func (c *CommandChannel) Connect() error {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	if c.ctrlConn != nil {
		return nil
	}
	conn, err := dialControl(c.cfg.DroneAddr, c.cfg.DronePort, c.cfg.LocalPort)
	if err != nil {
		return &IOError{Op: "dial", Err: err}
	}
	c.ctrlConn = conn
	c.rxDone = make(chan struct{})
	go c.controlResponseListener(conn, c.rxDone)

	c.logger.Info("control channel connected",
		zap.Stringer("local", conn.LocalAddr()),
		zap.Stringer("drone", conn.RemoteAddr()))
	return nil
}

// Disconnect cancels the in-flight command and everything queued behind it,
// in submission order, then closes the socket and waits for the receive loop to end.
// It is safe to call on a channel that was never connected.
func (c *CommandChannel) Disconnect() {
	c.ctrlMu.Lock()
	conn := c.ctrlConn
	if conn == nil {
		c.ctrlMu.Unlock()
		return
	}
	c.ctrlConn = nil
	n := c.cancelAllLocked(ErrCancelled)
	done := c.rxDone
	c.ctrlMu.Unlock()

	conn.Close()
	<-done
	c.logger.Info("control channel disconnected", zap.Int("cancelled", n))
}

// Connected reports whether the control socket is open.
func (c *CommandChannel) Connected() bool {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	return c.ctrlConn != nil
}

// LocalAddr returns the bound control address, or nil when disconnected.
func (c *CommandChannel) LocalAddr() net.Addr {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	if c.ctrlConn == nil {
		return nil
	}
	return c.ctrlConn.LocalAddr()
}

// SendCommand queues text for the drone and returns at once.
// onResult (which may be nil) is called exactly once with the outcome; outcomes are
// delivered in the order commands were submitted, never while the channel lock is held.
func (c *CommandChannel) SendCommand(text string, onResult ResultFunc) {
	c.submit(Command{Text: text}, onResult)
}

func (c *CommandChannel) submit(cmd Command, onResult ResultFunc) {
	ex := &exchange{id: uuid.New(), cmd: cmd, onResult: onResult}

	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	if c.ctrlConn == nil {
		c.deliverLocked(ex, ErrNotConnected)
		return
	}
	c.queue = append(c.queue, ex)
	c.advanceLocked()
}

// reject resolves a command that never reached the queue.
func (c *CommandChannel) reject(cmd Command, onResult ResultFunc, err error) {
	ex := &exchange{id: uuid.New(), cmd: cmd, onResult: onResult}
	c.ctrlMu.Lock()
	c.deliverLocked(ex, err)
	c.ctrlMu.Unlock()
}

// advanceLocked dispatches queued commands until one is in flight or the queue is empty.
func (c *CommandChannel) advanceLocked() {
	for c.pending == nil && len(c.queue) > 0 {
		ex := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.dispatchLocked(ex)
	}
}

func (c *CommandChannel) dispatchLocked(ex *exchange) {
	ex.cmd.IssuedAt = time.Now()
	c.pending = ex
	ex.timer = time.AfterFunc(c.cfg.ReplyTimeout, func() { c.expire(ex) })

	if _, err := c.ctrlConn.Write([]byte(ex.cmd.Text)); err != nil {
		c.logger.Warn("write failed", zap.String("cmd", ex.cmd.Text), zap.Error(err))
		c.resolveLocked(ex, &IOError{Op: "write", Err: err})
		return
	}
	c.logger.Debug("sent", zap.String("cmd", ex.cmd.Text), zap.Stringer("id", ex.id))
}

// expire is the deadline timer for ex. If a reply got there first the slot
// no longer holds ex and there is nothing to do.
func (c *CommandChannel) expire(ex *exchange) {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	if c.pending != ex {
		return
	}
	c.logger.Warn("no reply before deadline",
		zap.String("cmd", ex.cmd.Text),
		zap.Duration("timeout", c.cfg.ReplyTimeout))
	c.resolveLocked(ex, ErrTimeout)
	c.advanceLocked()
}

func (c *CommandChannel) handleReply(payload []byte) {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	ex := c.pending
	if ex == nil {
		c.logger.Debug("discarding unsolicited reply", zap.ByteString("payload", payload))
		return
	}
	err := replyError(payload)
	c.logger.Debug("reply",
		zap.String("cmd", ex.cmd.Text),
		zap.ByteString("payload", payload),
		zap.Duration("rtt", time.Since(ex.cmd.IssuedAt)))
	c.resolveLocked(ex, err)
	c.advanceLocked()
}

// resolveLocked clears the pending slot and hands the outcome to the delivery goroutine.
func (c *CommandChannel) resolveLocked(ex *exchange, err error) {
	if ex.timer != nil {
		ex.timer.Stop()
	}
	if c.pending == ex {
		c.pending = nil
	}
	c.deliverLocked(ex, err)
}

// cancelAllLocked resolves the in-flight exchange then the queue with err. It returns the count.
func (c *CommandChannel) cancelAllLocked(err error) int {
	n := 0
	if c.pending != nil {
		c.resolveLocked(c.pending, err)
		n++
	}
	for _, ex := range c.queue {
		c.deliverLocked(ex, err)
		n++
	}
	c.queue = nil
	return n
}

func (c *CommandChannel) controlResponseListener(conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	buff := make([]byte, rxBufferSize)

	for {
		n, err := conn.Read(buff)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				c.logger.Debug("control listener stopped")
				return
			}
			if isTransientRead(err) {
				c.logger.Debug("drone port unreachable", zap.Error(err))
				continue
			}
			c.fail(conn, &IOError{Op: "read", Err: err})
			return
		}
		c.handleReply(buff[:n])
	}
}

// fail tears the channel down after a receive error, failing every outstanding exchange.
func (c *CommandChannel) fail(conn *net.UDPConn, err error) {
	c.ctrlMu.Lock()
	if c.ctrlConn != conn {
		c.ctrlMu.Unlock()
		return
	}
	c.ctrlConn = nil
	n := c.cancelAllLocked(err)
	c.ctrlMu.Unlock()

	conn.Close()
	c.logger.Error("control channel failed", zap.Error(err), zap.Int("failed", n))
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}

// deliverLocked appends to the outbox while ctrlMu is held, so the outbox
// order is the resolution order.
func (c *CommandChannel) deliverLocked(ex *exchange, err error) {
	c.outMu.Lock()
	c.outbox = append(c.outbox, resolution{ex: ex, err: err, at: time.Now()})
	if c.delivering {
		c.outMu.Unlock()
		return
	}
	c.delivering = true
	c.outMu.Unlock()
	go c.deliveryLoop()
}

// deliveryLoop runs the callbacks one at a time until the outbox is empty.
func (c *CommandChannel) deliveryLoop() {
	for {
		c.outMu.Lock()
		if len(c.outbox) == 0 {
			c.delivering = false
			c.outMu.Unlock()
			return
		}
		r := c.outbox[0]
		c.outbox[0] = resolution{}
		c.outbox = c.outbox[1:]
		c.outMu.Unlock()

		c.finish(r)
	}
}

func (c *CommandChannel) finish(r resolution) {
	if c.cfg.Journal != nil {
		rec := ExchangeRecord{
			ID:         r.ex.id.String(),
			Command:    r.ex.cmd.Text,
			IssuedAt:   r.ex.cmd.IssuedAt,
			ResolvedAt: r.at,
			Outcome:    outcomeName(r.err),
		}
		if r.err != nil {
			rec.Detail = r.err.Error()
		}
		c.cfg.Journal.RecordExchange(rec)
	}
	if r.ex.onResult != nil {
		r.ex.onResult(r.ex.cmd, r.err)
	}
}
