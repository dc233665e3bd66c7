// Package audit writes a JSONL trail of provisioning attempts to disk,
// adapted from the teacher's per-category debug logger
// (lib/debug/debug_logger.go): one append-only file per category per
// process session, written under a mutex rather than serialized through a
// channel.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Recorder appends provisioning-attempt records to a JSONL file. A nil
// *Recorder is valid and every method on it is a no-op, so callers can
// wire it unconditionally and only pay for it when enabled.
type Recorder struct {
	mu        sync.Mutex
	file      *os.File
	sessionID string
	start     time.Time
}

// New opens (creating if necessary) a JSONL file under dir named after the
// process's start time, and returns a Recorder writing to it. Returns nil,
// nil if dir is empty — audit recording is optional and deployment-specific,
// left to the operator to enable via configuration.
func New(dir string, now time.Time) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	sessionID := now.UTC().Format("20060102T150405Z")
	path := filepath.Join(dir, sessionID+"_provisioning.jsonl")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &Recorder{file: file, sessionID: sessionID, start: now}, nil
}

// entry is one line of the JSONL trail.
type entry struct {
	SessionID      string  `json:"sessionId"`
	Timestamp      string  `json:"timestamp"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	ContentID      string  `json:"contentId"`
	Outcome        string  `json:"outcome"`
	DurationMs     int64   `json:"durationMs"`
	Retries        int     `json:"retries"`
	Error          string  `json:"error,omitempty"`
}

// RecordProvision appends one provisioning-attempt record. now is passed
// in rather than read from time.Now so callers share a single injected
// clock (spec ambient convention, see internal/provisioner.Clock).
func (r *Recorder) RecordProvision(now time.Time, contentID, outcome string, duration time.Duration, retries int, recordErr error) {
	if r == nil {
		return
	}

	e := entry{
		SessionID:      r.sessionID,
		Timestamp:      now.UTC().Format(time.RFC3339Nano),
		ElapsedSeconds: now.Sub(r.start).Seconds(),
		ContentID:      contentID,
		Outcome:        outcome,
		DurationMs:     duration.Milliseconds(),
		Retries:        retries,
	}
	if recordErr != nil {
		e.Error = recordErr.Error()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_ = json.NewEncoder(r.file).Encode(e)
}

// Close closes the underlying file. Safe to call on a nil Recorder.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.file.Close()
}
