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

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sdm-ifsp/tello"
	"github.com/sdm-ifsp/tello/config"
)

// channelConfig maps the loaded configuration onto a CommandChannel.
func channelConfig(c *config.Config, l *zap.Logger) tello.ChannelConfig {
	return tello.ChannelConfig{
		DroneAddr:    c.Drone.Address,
		DronePort:    c.Drone.CommandPort,
		LocalPort:    c.Drone.LocalCommandPort,
		ReplyTimeout: c.Timing.ReplyTimeout,
		Logger:       l,
	}
}

// sessionConfig maps the loaded configuration onto a Session. The returned
// close func releases the flight log, if one was opened.
func sessionConfig(c *config.Config, l *zap.Logger) (tello.SessionConfig, func(), error) {
	sc := tello.SessionConfig{
		Channel:         channelConfig(c, l),
		State:           tello.StateConfig{LocalPort: c.Drone.StatePort},
		HeartbeatPeriod: c.Timing.HeartbeatPeriod,
		Logger:          l,
	}
	if c.Video.Enabled {
		sc.Video = &tello.VideoConfig{
			LocalPort: c.Drone.VideoPort,
			Decoder: tello.DecoderConfig{
				Command:  c.Video.DecoderCommand,
				Args:     c.Video.DecoderArgs,
				FrameDir: c.Video.FrameDir,
			},
			StreamOnDelay: c.Video.StreamOnDelay,
		}
	}
	closer := func() {}
	if c.FlightLog.Enabled {
		fl, err := tello.OpenFlightLog(c.FlightLog.Path, l)
		if err != nil {
			return sc, closer, err
		}
		sc.FlightLog = fl
		closer = func() {
			if err := fl.Close(); err != nil {
				l.Warn("closing flight log", zap.Error(err))
			}
		}
	}
	return sc, closer, nil
}

// dispatch sends the command typed as fields, eg. ["forward", "50"].
func dispatch(ch *tello.CommandChannel, fields []string, onResult tello.ResultFunc) error {
	if len(fields) == 0 {
		return nil
	}
	word := strings.ToLower(fields[0])
	args := fields[1:]

	switch word {
	case "command":
		ch.Probe(onResult)
	case "takeoff":
		ch.TakeOff(onResult)
	case "land":
		ch.Land(onResult)
	case "streamon", "streamoff":
		ch.SetVideoStream(word == "streamon", onResult)
	case "forward", "back", "left", "right", "up", "down":
		n, err := intArg(word, args)
		if err != nil {
			return err
		}
		ch.Move(tello.Direction(word), n, onResult)
	case "cw", "ccw":
		n, err := intArg(word, args)
		if err != nil {
			return err
		}
		ch.Rotate(tello.Rotation(word), n, onResult)
	case "sticks":
		if len(args) != 4 {
			return fmt.Errorf("usage: sticks <pitch> <roll> <yaw> <throttle>")
		}
		var v [4]int
		for i, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("sticks: %q is not a number", a)
			}
			v[i] = n
		}
		if ch.ApplySticks(tello.StickInput{Pitch: v[0], Roll: v[1], Yaw: v[2], Throttle: v[3]}, onResult) == 0 {
			return fmt.Errorf("sticks centred, nothing sent")
		}
	case "raw":
		if len(args) == 0 {
			return fmt.Errorf("usage: raw <sdk command>")
		}
		ch.SendCommand(strings.Join(args, " "), onResult)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}

func intArg(word string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s <n>", word)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", word, args[0])
	}
	return n, nil
}

// outcome is the text shown to the user for a result: "ok", "timeout" or the drone's own reply.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}
