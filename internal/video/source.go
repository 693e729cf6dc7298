package video

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrSourceExhausted is returned by Next when a finite source (video file)
// has delivered its last frame. It is a terminal, non-error condition for
// file playback and should trigger a clean shutdown.
var ErrSourceExhausted = errors.New("video source exhausted")

// ErrSourceUnavailable is returned when a live source stops producing
// frames (camera disconnected). The pipeline halts rather than looping on
// empty reads.
var ErrSourceUnavailable = errors.New("video source unavailable")

// Frame is one timestamped video frame. Data holds the original JPEG bytes
// when the source produced them (so recordings avoid a re-encode); Image is
// the decoded picture used by the detection pipeline. Frames are owned by
// the pipeline for a single tick and must not be retained past it.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Image     image.Image
	Data      []byte
}

// Source yields an ordered, possibly infinite sequence of frames.
type Source interface {
	// Next blocks until the next frame is available, the context is
	// cancelled, or the source ends. It returns ErrSourceExhausted when a
	// file source reaches end-of-stream and ErrSourceUnavailable when a
	// live source stops producing frames.
	Next(ctx context.Context) (*Frame, error)

	// Close releases the underlying capture resources.
	Close() error
}
