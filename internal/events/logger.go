// Package events records the operational events produced by the detection
// pipeline: motion transitions and recording lifecycle changes. The log is
// append-only; the pipeline never reads it back.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies one class of operational event.
type Kind string

const (
	KindMotionStarted    Kind = "motion-started"
	KindMotion           Kind = "motion"
	KindMotionEnded      Kind = "motion-ended"
	KindRecordingStarted Kind = "recording-started"
	KindRecordingEnded   Kind = "recording-ended"
)

// Record is one logged event.
type Record struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      Kind              `json:"kind"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewRecord builds a record with a fresh ID.
func NewRecord(ts time.Time, kind Kind, metadata map[string]string) Record {
	return Record{
		ID:        uuid.New().String(),
		Timestamp: ts,
		Kind:      kind,
		Metadata:  metadata,
	}
}

// Logger accepts event records, append-only.
type Logger interface {
	Log(rec Record) error
}

// Tee fans a record out to several loggers. The first error is returned but
// all loggers are attempted.
type Tee []Logger

func (t Tee) Log(rec Record) error {
	var first error
	for _, l := range t {
		if err := l.Log(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Nop discards all records.
type Nop struct{}

func (Nop) Log(Record) error { return nil }

var (
	_ Logger = Tee(nil)
	_ Logger = Nop{}
)
