// flightCommands.go

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

import "fmt"

// Probe sends the bare "command" word. It puts the drone into SDK mode and
// doubles as the keep-alive heartbeat.
func (c *CommandChannel) Probe(onResult ResultFunc) {
	c.submit(NewCommand(cmdCommand), onResult)
}

// TakeOff sends a normal takeoff request to the Tello
func (c *CommandChannel) TakeOff(onResult ResultFunc) {
	c.submit(NewCommand(cmdTakeOff), onResult)
}

// Land sends a normal Land request to the Tello
func (c *CommandChannel) Land(onResult ResultFunc) {
	c.submit(NewCommand(cmdLand), onResult)
}

// SetVideoStream asks the drone to start or stop sending raw video to local port 11111.
func (c *CommandChannel) SetVideoStream(on bool, onResult ResultFunc) {
	if on {
		c.submit(NewCommand(cmdStreamOn), onResult)
		return
	}
	c.submit(NewCommand(cmdStreamOff), onResult)
}

// Move translates the drone cm centimetres in direction dir.
func (c *CommandChannel) Move(dir Direction, cm int, onResult ResultFunc) {
	cmd := NewCommand(string(dir), cm)
	if !dir.Valid() {
		c.reject(cmd, onResult, fmt.Errorf("%w: direction %q", ErrInvalidArgument, dir))
		return
	}
	c.submit(cmd, onResult)
}

// Rotate yaws the drone deg degrees.
func (c *CommandChannel) Rotate(rot Rotation, deg int, onResult ResultFunc) {
	cmd := NewCommand(string(rot), deg)
	if !rot.Valid() {
		c.reject(cmd, onResult, fmt.Errorf("%w: rotation %q", ErrInvalidArgument, rot))
		return
	}
	c.submit(cmd, onResult)
}

// *** The following are here purely to make the channel easier to use
// *** from input handlers that think in terms of single directions.

// Forward moves the drone forward cm centimetres
func (c *CommandChannel) Forward(cm int, onResult ResultFunc) { c.Move(DirForward, cm, onResult) }

// Back moves the drone backward cm centimetres
func (c *CommandChannel) Back(cm int, onResult ResultFunc) { c.Move(DirBack, cm, onResult) }

// Left moves the drone left cm centimetres
func (c *CommandChannel) Left(cm int, onResult ResultFunc) { c.Move(DirLeft, cm, onResult) }

// Right moves the drone right cm centimetres
func (c *CommandChannel) Right(cm int, onResult ResultFunc) { c.Move(DirRight, cm, onResult) }

// Up climbs cm centimetres
func (c *CommandChannel) Up(cm int, onResult ResultFunc) { c.Move(DirUp, cm, onResult) }

// Down descends cm centimetres
func (c *CommandChannel) Down(cm int, onResult ResultFunc) { c.Move(DirDown, cm, onResult) }

// Clockwise rotates deg degrees clockwise
func (c *CommandChannel) Clockwise(deg int, onResult ResultFunc) {
	c.Rotate(RotClockwise, deg, onResult)
}

// CounterClockwise rotates deg degrees anticlockwise
func (c *CommandChannel) CounterClockwise(deg int, onResult ResultFunc) {
	c.Rotate(RotCounterClockwise, deg, onResult)
}

// *** End of convenience commands ***
