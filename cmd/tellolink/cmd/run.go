// run.go

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

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdm-ifsp/tello"
)

var (
	runShowTelemetry bool
	runShowFrames    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a session and read flight commands from stdin",
	Long: `Start a session with the drone and read commands from stdin, one per line.

Commands:
  command | takeoff | land | streamon | streamoff
  forward|back|left|right|up|down <cm>
  cw|ccw <degrees>
  sticks <pitch> <roll> <yaw> <throttle>
  raw <any sdk command>
  quit

Each result is printed when it arrives: "ok", "timeout", or the drone's reply.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSession(ctx, os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runShowTelemetry, "telemetry", false, "print every telemetry line")
	runCmd.Flags().BoolVar(&runShowFrames, "frames", false, "print the size of every decoded video frame")
}

func runSession(ctx context.Context, in io.Reader, out io.Writer) error {
	var outMu sync.Mutex
	printf := func(format string, a ...interface{}) {
		outMu.Lock()
		fmt.Fprintf(out, format, a...)
		outMu.Unlock()
	}

	sc, closeLog, err := sessionConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLog()

	sc.OnError = func(err error) {
		printf("link error: %v\n", err)
	}
	if runShowTelemetry {
		sc.OnTelemetry = func(f tello.TelemetryFrame) {
			printf("state %s\n", f.Line)
		}
	}
	if runShowFrames {
		sc.OnFrame = func(img image.Image) {
			printf("frame %v\n", img.Bounds().Size())
		}
	}

	session := tello.NewSession(sc)
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				drain(ctx, session.Channel())
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" || fields[0] == "exit" {
				drain(ctx, session.Channel())
				return nil
			}
			err := dispatch(session.Channel(), fields, func(c tello.Command, err error) {
				printf("%s: %s\n", c.Text, outcome(err))
			})
			if err != nil {
				logger.Debug("rejected input", zap.String("line", line), zap.Error(err))
				printf("%v\n", err)
			}
		}
	}
}

// drain waits until everything already queued has resolved. Outcomes arrive in
// submission order, so a probe queued last resolves last.
func drain(ctx context.Context, ch *tello.CommandChannel) {
	done := make(chan struct{})
	ch.Probe(func(tello.Command, error) { close(done) })
	select {
	case <-done:
	case <-ctx.Done():
	}
}
