// messages.go

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
	"strconv"
	"strings"
	"time"
)

// SDK command words understood by the drone on its command port.
const (
	cmdCommand   = "command"
	cmdTakeOff   = "takeoff"
	cmdLand      = "land"
	cmdStreamOn  = "streamon"
	cmdStreamOff = "streamoff"
)

const replyOK = "ok"

// Command is a single SDK text command.
// IssuedAt is zero until the command is written to the socket.
type Command struct {
	Text     string
	IssuedAt time.Time
}

// NewCommand builds a Command from an operation name and optional integer arguments,
// eg. NewCommand("forward", 50) gives "forward 50".
func NewCommand(name string, args ...int) Command {
	var sb strings.Builder
	sb.WriteString(name)
	for _, a := range args {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(a))
	}
	return Command{Text: sb.String()}
}

func (c Command) String() string {
	return c.Text
}

// Direction is a translation direction for Move.
type Direction string

// Directions...
const (
	DirForward Direction = "forward"
	DirBack    Direction = "back"
	DirLeft    Direction = "left"
	DirRight   Direction = "right"
	DirUp      Direction = "up"
	DirDown    Direction = "down"
)

// Valid reports whether d is one of the six SDK directions.
func (d Direction) Valid() bool {
	switch d {
	case DirForward, DirBack, DirLeft, DirRight, DirUp, DirDown:
		return true
	}
	return false
}

// Rotation is a yaw direction for Rotate.
type Rotation string

// Rotations...
const (
	RotClockwise        Rotation = "cw"
	RotCounterClockwise Rotation = "ccw"
)

// Valid reports whether r is cw or ccw.
func (r Rotation) Valid() bool {
	return r == RotClockwise || r == RotCounterClockwise
}

// replyError turns a raw control-port payload into the exchange result.
func replyError(payload []byte) error {
	reply := strings.TrimSpace(string(payload))
	if strings.EqualFold(reply, replyOK) {
		return nil
	}
	return &ReplyError{Reply: reply, Raw: string(payload)}
}
