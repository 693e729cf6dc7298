package pipeline

import (
	"time"

	"zonewatch/internal/motion"
)

// TickResult is the published outcome of processing one frame.
type TickResult struct {
	Seq         uint64          `json:"seq"`
	Timestamp   time.Time       `json:"timestamp"`
	State       string          `json:"state"`
	Calibrating bool            `json:"calibrating"`
	GateActive  bool            `json:"gate_active"`
	Regions     []motion.Region `json:"regions,omitempty"`
	Recording   bool            `json:"recording"`
	ClipName    string          `json:"clip_name,omitempty"`
}

// TickHandler receives tick results published on the bus.
type TickHandler interface {
	OnTick(result *TickResult)
}

// TickHandlerFunc adapts a function to the TickHandler interface.
type TickHandlerFunc func(result *TickResult)

func (f TickHandlerFunc) OnTick(result *TickResult) { f(result) }
