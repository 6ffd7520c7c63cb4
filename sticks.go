// sticks.go

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

// StickInput is one reading of the on-screen virtual sticks.
// Each axis is a signed distance: centimetres for Pitch, Roll and Throttle, degrees for Yaw.
type StickInput struct {
	Pitch    int // +forward / -back
	Roll     int // +right / -left
	Yaw      int // +clockwise / -anticlockwise
	Throttle int // +up / -down
}

// Commands returns the SDK commands for s in pitch, roll, yaw, throttle order.
// Centred axes produce nothing.
func (s StickInput) Commands() []Command {
	var cmds []Command
	if s.Pitch > 0 {
		cmds = append(cmds, NewCommand(string(DirForward), s.Pitch))
	} else if s.Pitch < 0 {
		cmds = append(cmds, NewCommand(string(DirBack), -s.Pitch))
	}
	if s.Roll > 0 {
		cmds = append(cmds, NewCommand(string(DirRight), s.Roll))
	} else if s.Roll < 0 {
		cmds = append(cmds, NewCommand(string(DirLeft), -s.Roll))
	}
	if s.Yaw > 0 {
		cmds = append(cmds, NewCommand(string(RotClockwise), s.Yaw))
	} else if s.Yaw < 0 {
		cmds = append(cmds, NewCommand(string(RotCounterClockwise), -s.Yaw))
	}
	if s.Throttle > 0 {
		cmds = append(cmds, NewCommand(string(DirUp), s.Throttle))
	} else if s.Throttle < 0 {
		cmds = append(cmds, NewCommand(string(DirDown), -s.Throttle))
	}
	return cmds
}

// ApplySticks queues the commands for s. onResult is called once per command
// produced, which may be zero times. It returns how many commands were queued.
func (c *CommandChannel) ApplySticks(s StickInput, onResult ResultFunc) int {
	cmds := s.Commands()
	for _, cmd := range cmds {
		c.submit(cmd, onResult)
	}
	return len(cmds)
}
