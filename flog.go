// flog.go

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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	exchangeBucket  = "exchanges"
	telemetryBucket = "telemetry"
)

// FlightLog is an on-disk journal of command exchanges and telemetry for one or more flights.
// It satisfies ExchangeJournal so it can be plugged straight into a CommandChannel.
type FlightLog struct {
	db     *bbolt.DB
	logger *zap.Logger
}

// OpenFlightLog opens (or creates) the journal at path.
func OpenFlightLog(path string, logger *zap.Logger) (*FlightLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open flight log: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{exchangeBucket, telemetryBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &FlightLog{db: db, logger: logger.Named("flightlog")}, nil
}

// Close closes the underlying database.
func (l *FlightLog) Close() error {
	return l.db.Close()
}

// RecordExchange appends rec. Errors are logged, not returned, so a full disk
// never interferes with flying.
func (l *FlightLog) RecordExchange(rec ExchangeRecord) {
	if err := l.put(exchangeBucket, rec); err != nil {
		l.logger.Warn("could not record exchange", zap.String("cmd", rec.Command), zap.Error(err))
	}
}

// RecordTelemetry appends one telemetry frame.
func (l *FlightLog) RecordTelemetry(frame TelemetryFrame) {
	if err := l.put(telemetryBucket, frame); err != nil {
		l.logger.Warn("could not record telemetry", zap.Error(err))
	}
}

// Exchanges returns every recorded exchange, oldest first.
func (l *FlightLog) Exchanges() ([]ExchangeRecord, error) {
	var recs []ExchangeRecord
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(exchangeBucket)).ForEach(func(_, v []byte) error {
			var rec ExchangeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, err
}

// Telemetry returns up to limit of the most recent frames, oldest first.
// A limit of zero or less returns everything.
func (l *FlightLog) Telemetry(limit int) ([]TelemetryFrame, error) {
	var frames []TelemetryFrame
	err := l.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(telemetryBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(frames) == limit {
				break
			}
			var f TelemetryFrame
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			frames = append(frames, f)
		}
		return nil
	})
	// collected newest first
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames, err
}

func (l *FlightLog) put(bucket string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// big-endian so bbolt's byte ordering is insertion order
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
