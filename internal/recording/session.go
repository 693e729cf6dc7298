package recording

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"zonewatch/internal/video"
)

// ErrSessionClosed is returned when frames are submitted to a session that
// has already been closed.
var ErrSessionClosed = errors.New("recording session closed")

// Session is a single bounded recording. It runs for a fixed planned
// duration from its start time regardless of what motion does afterwards.
type Session struct {
	ID       string
	Start    time.Time
	Duration time.Duration

	mu            sync.Mutex
	clip          Clip
	closed        bool
	framesWritten int
}

// Expired reports whether the session has reached the end of its planned
// duration at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Start.Add(s.Duration))
}

// Submit appends a frame to the session clip.
func (s *Session) Submit(frame *video.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.clip.Write(frame); err != nil {
		return err
	}
	s.framesWritten++
	return nil
}

// FramesWritten returns the number of frames appended so far.
func (s *Session) FramesWritten() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.framesWritten
}

// ClipName returns the path of the clip file.
func (s *Session) ClipName() string {
	return s.clip.Name()
}

// Close finalizes the clip. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.clip.Close()
}

// Manager enforces the at-most-one-session recording policy.
type Manager struct {
	recorder Recorder
	duration time.Duration

	mu      sync.Mutex
	current *Session
}

// NewManager creates a manager that opens sessions through recorder, each
// planned to run for duration.
func NewManager(recorder Recorder, duration time.Duration) *Manager {
	return &Manager{recorder: recorder, duration: duration}
}

// Open starts a new session at now, or returns the already-open session
// unchanged. The second return value reports whether a session was opened
// by this call.
func (m *Manager) Open(now time.Time) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current, false, nil
	}
	clip, err := m.recorder.Open(now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open recording session: %w", err)
	}
	m.current = &Session{
		ID:       uuid.New().String(),
		Start:    now,
		Duration: m.duration,
		clip:     clip,
	}
	return m.current, true, nil
}

// Current returns the open session, or nil when none is open.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Release closes the current session and clears it. It is a no-op when no
// session is open.
func (m *Manager) Release() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, nil
	}
	s := m.current
	m.current = nil
	return s, s.Close()
}
