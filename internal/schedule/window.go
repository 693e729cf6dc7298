// Package schedule decides whether the monitor is inside its active
// (after-hours) window. The gate is a pure function of the configured window
// and an injected clock value, which keeps schedule-dependent behaviour
// deterministic in tests.
package schedule

import (
	"fmt"
	"time"
)

// Window is an hour-of-day range during which motion side effects are
// armed. It wraps past midnight when Start > End: (22, 6) means active for
// hour >= 22 or hour < 6. Equal bounds are degenerate and treated as
// always-active; configuration validation warns about them rather than
// silently picking an interpretation.
type Window struct {
	Start int
	End   int
}

// NewWindow validates the hour bounds and returns the window.
func NewWindow(start, end int) (Window, error) {
	if start < 0 || start >= 24 {
		return Window{}, fmt.Errorf("start hour %d outside [0,24)", start)
	}
	if end < 0 || end >= 24 {
		return Window{}, fmt.Errorf("end hour %d outside [0,24)", end)
	}
	return Window{Start: start, End: end}, nil
}

// Degenerate reports whether the window has equal bounds.
func (w Window) Degenerate() bool {
	return w.Start == w.End
}

// Active reports whether now falls inside the window.
func (w Window) Active(now time.Time) bool {
	hour := now.Hour()
	switch {
	case w.Start == w.End:
		return true
	case w.Start > w.End:
		return hour >= w.Start || hour < w.End
	default:
		return hour >= w.Start && hour < w.End
	}
}

func (w Window) String() string {
	return fmt.Sprintf("[%02d:00, %02d:00)", w.Start, w.End)
}
