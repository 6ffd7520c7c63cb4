// dronesim.go

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

// Package dronesim is a stand-in for a drone's SDK command port.
// It answers text commands over UDP the way the real aircraft does, records what it was
// sent, and can broadcast telemetry lines, so the control stack can be exercised on loopback.
package dronesim

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reply tells the simulator how to answer one command.
type Reply struct {
	Text   string        // payload to send back
	Delay  time.Duration // wait before answering
	Silent bool          // send nothing at all
}

// Responder decides the Reply for each received command.
type Responder func(cmd string) Reply

// AlwaysOK answers every command with "ok".
func AlwaysOK(string) Reply {
	return Reply{Text: "ok"}
}

// Silent never answers.
func Silent(string) Reply {
	return Reply{Silent: true}
}

// Script answers commands by their first word, falling back to def.
func Script(replies map[string]Reply, def Reply) Responder {
	return func(cmd string) Reply {
		word := cmd
		if i := strings.IndexByte(cmd, ' '); i >= 0 {
			word = cmd[:i]
		}
		if r, ok := replies[word]; ok {
			return r
		}
		return def
	}
}

// Drone is a simulated drone command port.
type Drone struct {
	conn   *net.UDPConn
	logger *zap.Logger

	mu        sync.Mutex
	responder Responder
	received  []string
	notify    chan string

	wg sync.WaitGroup
}

// Listen starts a simulated drone on addr, eg. "127.0.0.1:0" or ":8889".
// A nil responder means AlwaysOK.
func Listen(addr string, responder Responder, logger *zap.Logger) (*Drone, error) {
	if responder == nil {
		responder = AlwaysOK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	d := &Drone{
		conn:      conn,
		logger:    logger.Named("dronesim"),
		responder: responder,
		notify:    make(chan string, 256),
	}
	d.wg.Add(1)
	go d.serve()
	d.logger.Info("simulated drone listening", zap.Stringer("addr", conn.LocalAddr()))
	return d, nil
}

// Addr is the bound command address.
func (d *Drone) Addr() *net.UDPAddr {
	return d.conn.LocalAddr().(*net.UDPAddr)
}

// Port is the bound command port.
func (d *Drone) Port() int {
	return d.Addr().Port
}

// SetResponder swaps the reply policy.
func (d *Drone) SetResponder(r Responder) {
	d.mu.Lock()
	d.responder = r
	d.mu.Unlock()
}

// Received returns every command seen so far, in arrival order.
func (d *Drone) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.received...)
}

// Commands delivers each received command as it arrives. The buffer is bounded;
// commands beyond it are only visible through Received.
func (d *Drone) Commands() <-chan string {
	return d.notify
}

// Close stops the simulator and waits for pending delayed replies.
func (d *Drone) Close() error {
	err := d.conn.Close()
	d.wg.Wait()
	return err
}

// SendTo writes an arbitrary payload to addr from the command port, eg. a stray reply.
func (d *Drone) SendTo(addr net.Addr, payload string) error {
	ua, ok := addr.(*net.UDPAddr)
	if !ok {
		return errors.New("dronesim: not a UDP address")
	}
	_, err := d.conn.WriteToUDP([]byte(payload), ua)
	return err
}

func (d *Drone) serve() {
	defer d.wg.Done()
	buf := make([]byte, 1518)
	for {
		n, from, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				d.logger.Warn("read failed", zap.Error(err))
			}
			return
		}
		cmd := string(buf[:n])

		d.mu.Lock()
		d.received = append(d.received, cmd)
		responder := d.responder
		d.mu.Unlock()
		select {
		case d.notify <- cmd:
		default:
		}

		reply := responder(cmd)
		d.logger.Debug("command", zap.String("cmd", cmd), zap.String("reply", reply.Text), zap.Bool("silent", reply.Silent))
		if reply.Silent {
			continue
		}
		if reply.Delay <= 0 {
			d.conn.WriteToUDP([]byte(reply.Text), from)
			continue
		}
		d.wg.Add(1)
		go func(text string, to *net.UDPAddr, delay time.Duration) {
			defer d.wg.Done()
			time.Sleep(delay)
			d.conn.WriteToUDP([]byte(text), to)
		}(reply.Text, from, reply.Delay)
	}
}

// BroadcastTelemetry sends each line, CRLF-terminated as the drone does, to addr.
func BroadcastTelemetry(addr string, lines ...string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	for _, l := range lines {
		if _, err := conn.Write([]byte(l + "\r\n")); err != nil {
			return err
		}
	}
	return nil
}

// StateLine formats a state broadcast in the drone's key:value; layout.
func StateLine(battery, height, tof int) string {
	return "pitch:0;roll:0;yaw:0;vgx:0;vgy:0;vgz:0;templ:60;temph:63;" +
		"tof:" + strconv.Itoa(tof) + ";h:" + strconv.Itoa(height) + ";bat:" + strconv.Itoa(battery) +
		";baro:0.00;time:0;agx:0.00;agy:0.00;agz:-1000.00;"
}
