// sticks_test.go

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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sdm-ifsp/tello/internal/dronesim"
)

func texts(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Text
	}
	return out
}

func TestStickCommands(t *testing.T) {
	tests := []struct {
		name string
		in   StickInput
		want []string
	}{
		{"centred", StickInput{}, []string{}},
		{"pitch forward", StickInput{Pitch: 30}, []string{"forward 30"}},
		{"pitch back", StickInput{Pitch: -30}, []string{"back 30"}},
		{"roll left", StickInput{Roll: -20}, []string{"left 20"}},
		{"yaw anticlockwise", StickInput{Yaw: -45}, []string{"ccw 45"}},
		{"all axes", StickInput{Pitch: 20, Roll: 25, Yaw: 90, Throttle: -40},
			[]string{"forward 20", "right 25", "cw 90", "down 40"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, texts(tt.in.Commands()))
		})
	}
}

func TestApplySticks(t *testing.T) {
	drone := startDrone(t, dronesim.AlwaysOK)
	ch := connectChannel(t, testChannelConfig(drone))
	rec := newRecorder()

	assert.Equal(t, 0, ch.ApplySticks(StickInput{}, rec.fn))
	n := ch.ApplySticks(StickInput{Pitch: 20, Yaw: -30, Throttle: 50}, rec.fn)
	assert.Equal(t, 3, n)

	got := rec.wait(t, 3, time.Second)
	for _, res := range got {
		assert.NoError(t, res.err)
	}
	assert.Equal(t, []string{"forward 20", "ccw 30", "up 50"}, drone.Received())
}
