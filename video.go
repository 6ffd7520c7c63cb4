// video.go

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
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// how long Stop lets the decoder drain after closing its stdin
const decoderGrace = 2 * time.Second

// frameDirPlaceholder in decoder arguments is replaced with the frame directory.
const frameDirPlaceholder = "{frames}"

// DefaultDecoderArgs make ffmpeg read H.264 on stdin and write one PNG per frame.
// atomic_writing makes each file appear in the directory only once it is complete.
var DefaultDecoderArgs = []string{
	"-loglevel", "error",
	"-i", "pipe:0",
	"-r", "30",
	"-atomic_writing", "1",
	frameDirPlaceholder + "/frame_%d.png",
}

// VideoRelay receives the raw video stream and copies every datagram, unmodified,
// to a writer such as a decoder's stdin.
type VideoRelay struct {
	localPort int
	logger    *zap.Logger

	mu   sync.Mutex
	conn *net.UDPConn
	done chan struct{}
}

// NewVideoRelay creates a stopped relay for localPort (0 for any, see DefaultVideoPort).
func NewVideoRelay(localPort int, logger *zap.Logger) *VideoRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoRelay{localPort: localPort, logger: logger.Named("video")}
}

// DefaultVideoPort is where the drone sends video after "streamon".
const DefaultVideoPort = defaultLocalVideoPort

// Start binds the video port and relays datagrams to sink until Stop.
func (v *VideoRelay) Start(sink io.Writer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn != nil {
		return errors.New("video relay already running")
	}
	conn, err := listenLocal(v.localPort)
	if err != nil {
		return err
	}
	v.conn = conn
	v.done = make(chan struct{})
	go v.videoResponseListener(conn, v.done, sink)
	v.logger.Info("video relay started", zap.Stringer("addr", conn.LocalAddr()))
	return nil
}

// Stop closes the socket and waits for the relay loop to end.
func (v *VideoRelay) Stop() {
	v.mu.Lock()
	conn, done := v.conn, v.done
	v.conn = nil
	v.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Close()
	<-done
	v.logger.Info("video relay stopped")
}

// Addr returns the bound address, or nil when not running.
func (v *VideoRelay) Addr() net.Addr {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn == nil {
		return nil
	}
	return v.conn.LocalAddr()
}

func (v *VideoRelay) videoResponseListener(conn *net.UDPConn, done chan struct{}, sink io.Writer) {
	defer close(done)
	vbuf := make([]byte, 2048)
	var dropped int

	for {
		n, _, err := conn.ReadFromUDP(vbuf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				v.logger.Error("error reading from video channel", zap.Error(err))
			}
			return
		}
		if _, err := sink.Write(vbuf[:n]); err != nil {
			// so one bad write doesn't stop the stream
			if dropped%100 == 0 {
				v.logger.Warn("dropping video datagrams", zap.Error(err), zap.Int("dropped", dropped))
			}
			dropped++
		}
	}
}

// DecoderConfig describes the external transcoding process.
type DecoderConfig struct {
	Command  string   // defaults to "ffmpeg"
	Args     []string // defaults to DefaultDecoderArgs
	FrameDir string
	Logger   *zap.Logger
}

// Decoder runs the external process that turns the raw stream into frame files.
type Decoder struct {
	cfg    DecoderConfig
	logger *zap.Logger

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan struct{}
}

// NewDecoder creates a stopped decoder.
func NewDecoder(cfg DecoderConfig) *Decoder {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if len(cfg.Args) == 0 {
		cfg.Args = DefaultDecoderArgs
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{cfg: cfg, logger: logger.Named("decoder")}
}

// Args returns the process arguments with the frame directory filled in.
func (d *Decoder) Args() []string {
	args := make([]string, len(d.cfg.Args))
	for i, a := range d.cfg.Args {
		args[i] = strings.ReplaceAll(a, frameDirPlaceholder, d.cfg.FrameDir)
	}
	return args
}

// Start launches the process. It is killed when ctx ends or Stop is called.
func (d *Decoder) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil {
		return errors.New("decoder already running")
	}
	cmd := exec.CommandContext(ctx, d.cfg.Command, d.Args()...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("decoder stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", d.cfg.Command, err)
	}
	d.cmd, d.stdin = cmd, stdin
	d.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		err := cmd.Wait()
		switch {
		case err == nil:
			d.logger.Info("decoder exited")
		case ctx.Err() != nil:
			d.logger.Info("decoder cancelled")
		default:
			d.logger.Warn("decoder failed", zap.Error(err))
		}
	}(d.done)
	d.logger.Info("decoder started", zap.String("command", d.cfg.Command), zap.Strings("args", d.Args()))
	return nil
}

// Write feeds stream data to the decoder's stdin.
func (d *Decoder) Write(p []byte) (int, error) {
	d.mu.Lock()
	stdin := d.stdin
	d.mu.Unlock()
	if stdin == nil {
		return 0, errors.New("decoder not running")
	}
	return stdin.Write(p)
}

// Stop closes stdin so the process can flush, kills it if it lingers and waits for it.
func (d *Decoder) Stop() {
	d.mu.Lock()
	cmd, stdin, done := d.cmd, d.stdin, d.done
	d.cmd, d.stdin, d.done = nil, nil, nil
	d.mu.Unlock()
	if cmd == nil {
		return
	}
	stdin.Close()
	select {
	case <-done:
		return
	case <-time.After(decoderGrace):
	}
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
	<-done
}
