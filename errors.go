// errors.go

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
	"fmt"
)

// Outcomes other than success that a ResultFunc may receive.
// Use errors.Is for the sentinels and errors.As for *ReplyError and *IOError.
var (
	// ErrTimeout means no reply arrived before the exchange deadline.
	ErrTimeout = errors.New("timeout")
	// ErrCancelled means the channel was disconnected while the command was queued or in flight.
	ErrCancelled = errors.New("cancelled")
	// ErrNotConnected is returned for commands submitted to a channel with no open socket.
	ErrNotConnected = errors.New("not connected")
	// ErrInvalidArgument is returned for commands that could not be built, eg. an unknown direction.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ReplyError is a reply from the drone that was not "ok".
// Its Error text is the reply without surrounding whitespace so it can be shown to the user.
type ReplyError struct {
	Reply string // trimmed reply text
	Raw   string // payload exactly as received
}

func (e *ReplyError) Error() string {
	return e.Reply
}

// IOError wraps a socket failure on the control channel.
type IOError struct {
	Op  string // "dial", "write" or "read"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// outcomeName gives the short journal label for a resolution error.
func outcomeName(err error) string {
	var ioErr *IOError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.As(err, &ioErr), errors.Is(err, ErrNotConnected):
		return "io"
	default:
		return "failure"
	}
}
