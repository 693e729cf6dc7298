package pipeline

import (
	"time"

	"zonewatch/internal/motion"
)

// State is the detector's alert state.
type State int

const (
	// Idle means no motion alert is in effect.
	Idle State = iota
	// Active means qualifying motion is being reported inside the alert window.
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Transition describes the outcome of one tick of the state machine.
type Transition struct {
	From State
	To   State
	// MotionStarted is true on the Idle to Active edge.
	MotionStarted bool
	// MotionEnded is true on the Active to Idle edge.
	MotionEnded bool
	// Suppressed is true when motion was observed but the schedule gate
	// or calibration state kept the machine in Idle.
	Suppressed bool
}

// StateMachine tracks the Idle/Active alert state across ticks. A tick
// moves to Active only when the current frame has motion and at least
// triggerFrames of the last windowSize ticks had motion. With the default
// triggerFrames of 1 the machine reacts on the first qualifying tick;
// raising it debounces flicker from noisy scenes.
type StateMachine struct {
	triggerFrames int
	windowSize    int

	state      State
	history    []bool
	next       int
	lastActive time.Time
}

// NewStateMachine creates a state machine in Idle. triggerFrames and
// windowSize values below 1 are raised to 1, and triggerFrames is capped
// at windowSize.
func NewStateMachine(triggerFrames, windowSize int) *StateMachine {
	if windowSize < 1 {
		windowSize = 1
	}
	if triggerFrames < 1 {
		triggerFrames = 1
	}
	if triggerFrames > windowSize {
		triggerFrames = windowSize
	}
	return &StateMachine{
		triggerFrames: triggerFrames,
		windowSize:    windowSize,
		history:       make([]bool, 0, windowSize),
	}
}

// State returns the current alert state.
func (sm *StateMachine) State() State {
	return sm.state
}

// LastActive returns the time of the most recent tick spent in Active,
// or the zero time if the machine has never been Active.
func (sm *StateMachine) LastActive() time.Time {
	return sm.lastActive
}

// Tick advances the machine with the observations from one frame.
// When the background model is not ready the frame carries no usable
// motion evidence, so the machine is forced to Idle and the history is
// not advanced. When the schedule gate is closed observed motion is
// still recorded in the history but cannot produce Active.
func (sm *StateMachine) Tick(now time.Time, regions []motion.Region, gateActive, ready bool) Transition {
	t := Transition{From: sm.state}

	if !ready {
		sm.state = Idle
		t.To = Idle
		t.MotionEnded = t.From == Active
		return t
	}

	moving := len(regions) > 0
	sm.push(moving)

	switch {
	case moving && gateActive && sm.positives() >= sm.triggerFrames:
		sm.state = Active
	default:
		sm.state = Idle
	}

	if sm.state == Active {
		sm.lastActive = now
	}
	if moving && sm.state == Idle {
		t.Suppressed = !gateActive
	}

	t.To = sm.state
	t.MotionStarted = t.From == Idle && t.To == Active
	t.MotionEnded = t.From == Active && t.To == Idle
	return t
}

// Reset returns the machine to Idle and clears the motion history.
func (sm *StateMachine) Reset() {
	sm.state = Idle
	sm.history = sm.history[:0]
	sm.next = 0
}

func (sm *StateMachine) push(moving bool) {
	if len(sm.history) < sm.windowSize {
		sm.history = append(sm.history, moving)
		return
	}
	sm.history[sm.next] = moving
	sm.next = (sm.next + 1) % sm.windowSize
}

func (sm *StateMachine) positives() int {
	n := 0
	for _, m := range sm.history {
		if m {
			n++
		}
	}
	return n
}
