package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strconv"
	"sync"
	"time"

	"zonewatch/internal/events"
	"zonewatch/internal/motion"
	"zonewatch/internal/recording"
	"zonewatch/internal/schedule"
	"zonewatch/internal/video"
)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// ROI restricts alerting to regions overlapping this rectangle.
	// The zero rectangle means the whole frame.
	ROI image.Rectangle
	// OutputFPS caps the processing rate. Zero means unpaced.
	OutputFPS int
	// Clock supplies the current time. Nil means time.Now.
	Clock func() time.Time
}

// Status is a point-in-time snapshot of the runner for the control API.
type Status struct {
	State            string    `json:"state"`
	Calibrating      bool      `json:"calibrating"`
	FramesCalibrated int       `json:"frames_calibrated,omitempty"`
	FramesQuota      int       `json:"frames_quota,omitempty"`
	GateActive       bool      `json:"gate_active"`
	FramesSeen       uint64    `json:"frames_seen"`
	LastActive       time.Time `json:"last_active,omitempty"`
	Recording        bool      `json:"recording"`
	ClipName         string    `json:"clip_name,omitempty"`
	SessionStarted   time.Time `json:"session_started,omitempty"`
}

// Runner drives the detection loop: it pulls frames from the source,
// maintains the background model, evaluates motion against the region of
// interest and the alert window, and manages recording sessions. All frame
// processing happens on the goroutine that calls Run.
type Runner struct {
	source   video.Source
	model    *motion.BackgroundModel
	proc     *motion.FrameProcessor
	window   schedule.Window
	sm       *StateMachine
	sessions *recording.Manager
	logger   events.Logger
	bus      *Bus

	roi      image.Rectangle
	interval time.Duration
	clock    func() time.Time

	resetCh chan struct{}

	mu     sync.RWMutex
	status Status
}

// NewRunner wires the detection loop components together. A nil sessions
// manager disables recording entirely: motion is still detected and logged,
// but no session is ever opened and no recording events are emitted.
func NewRunner(
	source video.Source,
	model *motion.BackgroundModel,
	proc *motion.FrameProcessor,
	window schedule.Window,
	sm *StateMachine,
	sessions *recording.Manager,
	logger events.Logger,
	bus *Bus,
	opts RunnerOptions,
) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	var interval time.Duration
	if opts.OutputFPS > 0 {
		interval = time.Second / time.Duration(opts.OutputFPS)
	}
	if logger == nil {
		logger = events.Nop{}
	}
	return &Runner{
		source:   source,
		model:    model,
		proc:     proc,
		window:   window,
		sm:       sm,
		sessions: sessions,
		logger:   logger,
		bus:      bus,
		roi:      opts.ROI,
		interval: interval,
		clock:    clock,
		resetCh:  make(chan struct{}, 1),
	}
}

// Reset asks the loop to discard the background model and alert state
// before processing the next frame. Safe to call from any goroutine;
// repeated calls before the loop services the request coalesce.
func (r *Runner) Reset() {
	select {
	case r.resetCh <- struct{}{}:
	default:
	}
}

// Status returns a snapshot of the loop state.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Run processes frames until the context is cancelled or the source ends.
// A finite source running out is a clean stop and returns nil; a live
// source going away returns the source error. Any open recording session
// is closed before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	log.Printf("[Monitor] detection loop started (window %s, roi %v)", r.window, r.roi)
	defer r.closeSession("shutdown")

	validatedROI := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.resetCh:
			r.reset()
		default:
		}

		frame, err := r.source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			case errors.Is(err, video.ErrSourceExhausted):
				log.Printf("[Monitor] source exhausted, stopping")
				return nil
			default:
				return fmt.Errorf("frame source failed: %w", err)
			}
		}

		if !validatedROI {
			if err := r.validateROI(frame.Image.Bounds()); err != nil {
				return err
			}
			validatedROI = true
		}

		r.tick(frame)

		if r.interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.interval):
			}
		}
	}
}

func (r *Runner) validateROI(frameBounds image.Rectangle) error {
	if r.roi.Empty() {
		return nil
	}
	if !r.roi.In(frameBounds) {
		return fmt.Errorf("roi %v extends outside the frame %v", r.roi, frameBounds)
	}
	return nil
}

// tick processes one frame.
func (r *Runner) tick(frame *video.Frame) {
	now := r.clock()
	gray, scale := r.proc.Prepare(frame.Image)

	if !r.model.Ready() {
		status, err := r.model.Ingest(gray)
		if err != nil {
			log.Printf("[Monitor] calibration frame rejected: %v", err)
		}
		tr := r.sm.Tick(now, nil, false, false)
		r.emitMotionEdges(now, tr, nil)
		if status == motion.Ready {
			log.Printf("[Monitor] background calibration complete")
		}
		r.publish(frame, now, nil, false)
		return
	}

	reference, err := r.model.Reference()
	if err != nil {
		// Cannot happen once Ready, but never process against a nil model.
		log.Printf("[Monitor] background model unavailable: %v", err)
		return
	}

	regions := r.proc.Process(gray, reference, scale)
	if !r.roi.Empty() {
		regions = motion.FilterROI(regions, r.roi)
	}

	gateActive := r.window.Active(now)
	tr := r.sm.Tick(now, regions, gateActive, true)
	r.emitMotionEdges(now, tr, regions)

	if tr.MotionStarted {
		r.openSession(now)
	}
	if tr.To == Active {
		// Ongoing motion record, one per active tick.
		r.logEvent(events.NewRecord(now, events.KindMotion, map[string]string{
			"regions": strconv.Itoa(len(regions)),
		}))
	}
	r.serviceSession(frame, now)

	r.publish(frame, now, regions, gateActive)
}

func (r *Runner) emitMotionEdges(now time.Time, tr Transition, regions []motion.Region) {
	if tr.MotionStarted {
		log.Printf("[Monitor] motion started (%d regions)", len(regions))
		r.logEvent(events.NewRecord(now, events.KindMotionStarted, map[string]string{
			"regions": strconv.Itoa(len(regions)),
		}))
	}
	if tr.MotionEnded {
		log.Printf("[Monitor] motion ended")
		r.logEvent(events.NewRecord(now, events.KindMotionEnded, nil))
	}
}

func (r *Runner) openSession(now time.Time) {
	if r.sessions == nil {
		return
	}
	sess, opened, err := r.sessions.Open(now)
	if err != nil {
		log.Printf("[Monitor] failed to open recording session: %v", err)
		return
	}
	if opened {
		log.Printf("[Monitor] recording started: %s", sess.ClipName())
		meta := map[string]string{
			"session": sess.ID,
			"clip":    sess.ClipName(),
		}
		if r.interval > 0 {
			meta["fps"] = strconv.Itoa(int(time.Second / r.interval))
		}
		r.logEvent(events.NewRecord(now, events.KindRecordingStarted, meta))
	}
}

// serviceSession writes the frame to the open session and retires the
// session once its planned duration elapses. The session outlives motion
// edges: it ends on expiry, not when the state returns to idle.
func (r *Runner) serviceSession(frame *video.Frame, now time.Time) {
	if r.sessions == nil {
		return
	}
	sess := r.sessions.Current()
	if sess == nil {
		return
	}
	if sess.Expired(now) {
		r.closeSession("duration elapsed")
		return
	}
	if err := sess.Submit(frame); err != nil {
		log.Printf("[Monitor] recording write failed: %v", err)
		r.closeSession("write error")
	}
}

func (r *Runner) closeSession(reason string) {
	if r.sessions == nil {
		return
	}
	sess, err := r.sessions.Release()
	if sess == nil {
		return
	}
	if err != nil {
		log.Printf("[Monitor] failed to close recording session: %v", err)
	}
	log.Printf("[Monitor] recording ended: %s (%d frames, %s)", sess.ClipName(), sess.FramesWritten(), reason)
	r.logEvent(events.NewRecord(r.clock(), events.KindRecordingEnded, map[string]string{
		"session": sess.ID,
		"clip":    sess.ClipName(),
		"frames":  strconv.Itoa(sess.FramesWritten()),
		"reason":  reason,
	}))
}

func (r *Runner) reset() {
	r.model.Reset()
	r.sm.Reset()
	log.Printf("[Monitor] background model reset, recalibrating")
}

func (r *Runner) logEvent(rec events.Record) {
	if err := r.logger.Log(rec); err != nil {
		log.Printf("[Monitor] failed to log event %s: %v", rec.Kind, err)
	}
}

func (r *Runner) publish(frame *video.Frame, now time.Time, regions []motion.Region, gateActive bool) {
	var sess *recording.Session
	if r.sessions != nil {
		sess = r.sessions.Current()
	}
	result := &TickResult{
		Seq:         frame.Seq,
		Timestamp:   now,
		State:       r.sm.State().String(),
		Calibrating: !r.model.Ready(),
		GateActive:  gateActive,
		Regions:     regions,
		Recording:   sess != nil,
	}
	if sess != nil {
		result.ClipName = sess.ClipName()
	}

	pending, quota := r.model.Pending()
	status := Status{
		State:       result.State,
		Calibrating: result.Calibrating,
		GateActive:  gateActive,
		FramesSeen:  frame.Seq,
		LastActive:  r.sm.LastActive(),
		Recording:   result.Recording,
		ClipName:    result.ClipName,
	}
	if result.Calibrating {
		status.FramesCalibrated = pending
		status.FramesQuota = quota
	}
	if sess != nil {
		status.SessionStarted = sess.Start
	}
	r.mu.Lock()
	r.status = status
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(result)
	}
}
