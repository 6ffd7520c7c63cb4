// flog_test.go

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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdm-ifsp/tello/internal/dronesim"
)

func openTestLog(t *testing.T) (*FlightLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flights.db")
	fl, err := OpenFlightLog(path, nil)
	require.NoError(t, err)
	return fl, path
}

func TestFlightLogExchanges(t *testing.T) {
	fl, path := openTestLog(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	fl.RecordExchange(ExchangeRecord{ID: "a", Command: "command", IssuedAt: now, ResolvedAt: now, Outcome: "ok"})
	fl.RecordExchange(ExchangeRecord{ID: "b", Command: "takeoff", IssuedAt: now, ResolvedAt: now, Outcome: "failure", Detail: "error"})

	recs, err := fl.Exchanges()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "command", recs[0].Command)
	assert.Equal(t, "error", recs[1].Detail)
	assert.True(t, recs[0].IssuedAt.Equal(now))
	require.NoError(t, fl.Close())

	// survives a reopen, and new records go after the old ones
	fl, err = OpenFlightLog(path, nil)
	require.NoError(t, err)
	defer fl.Close()
	fl.RecordExchange(ExchangeRecord{ID: "c", Command: "land", Outcome: "timeout"})
	recs, err = fl.Exchanges()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "land", recs[2].Command)
}

func TestFlightLogTelemetryLimit(t *testing.T) {
	fl, _ := openTestLog(t)
	defer fl.Close()

	for i := 0; i < 300; i++ {
		fl.RecordTelemetry(TelemetryFrame{Line: dronesim.StateLine(100-i/3, i, i), ReceivedAt: time.Now()})
	}

	all, err := fl.Telemetry(0)
	require.NoError(t, err)
	assert.Len(t, all, 300)

	last, err := fl.Telemetry(3)
	require.NoError(t, err)
	require.Len(t, last, 3)
	assert.Equal(t, dronesim.StateLine(1, 297, 297), last[0].Line)
	assert.Equal(t, dronesim.StateLine(1, 299, 299), last[2].Line)
}

func TestFlightLogAsJournal(t *testing.T) {
	fl, _ := openTestLog(t)
	defer fl.Close()

	drone := startDrone(t, dronesim.Script(map[string]dronesim.Reply{
		"land": {Text: "error Not joystick"},
	}, dronesim.Reply{Text: "ok"}))
	cfg := testChannelConfig(drone)
	cfg.Journal = fl
	ch := connectChannel(t, cfg)
	rec := newRecorder()

	ch.Probe(rec.fn)
	ch.Land(rec.fn)
	rec.wait(t, 2, time.Second)

	recs, err := fl.Exchanges()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "ok", recs[0].Outcome)
	assert.Equal(t, "failure", recs[1].Outcome)
	assert.Equal(t, "error Not joystick", recs[1].Detail)
	assert.NotEmpty(t, recs[1].ID)
}

func TestFlightLogLocked(t *testing.T) {
	fl, path := openTestLog(t)
	defer fl.Close()

	_, err := OpenFlightLog(path, nil)
	assert.Error(t, err, "a second writer times out on the file lock")
}

func TestSeqKeyOrder(t *testing.T) {
	assert.Less(t, string(seqKey(255)), string(seqKey(256)))
	assert.Len(t, seqKey(1), 8)
}
