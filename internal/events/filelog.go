package events

import (
	"fmt"
	"os"
	"sort"
	"time"
)

// FileLog appends human-readable event lines to a text file, one per
// record. This mirrors the plain motion log kept by classic single-camera
// monitors and is useful for quick review without SQL tooling.
type FileLog struct {
	f *os.File
}

// NewFileLog opens (creating if needed) the log file at path for appending.
func NewFileLog(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log file: %w", err)
	}
	return &FileLog{f: f}, nil
}

// Log appends one line.
func (l *FileLog) Log(rec Record) error {
	line := fmt.Sprintf("%s %s", rec.Timestamp.Format(time.DateTime), rec.Kind)
	keys := make([]string, 0, len(rec.Metadata))
	for k := range rec.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%s", k, rec.Metadata[k])
	}
	if _, err := fmt.Fprintln(l.f, line); err != nil {
		return fmt.Errorf("failed to append event line: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *FileLog) Close() error {
	return l.f.Close()
}

var _ Logger = (*FileLog)(nil)
