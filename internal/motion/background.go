package motion

import (
	"errors"
	"fmt"
	"image"
	"slices"
)

// ErrNotReady is returned when the background reference is requested before
// calibration has consumed its full quota of frames. It is an expected
// transient condition, not a failure.
var ErrNotReady = errors.New("background model still calibrating")

// CalibrationStatus reports where the background model is in its lifecycle.
type CalibrationStatus int

const (
	Calibrating CalibrationStatus = iota
	Ready
)

func (s CalibrationStatus) String() string {
	if s == Ready {
		return "ready"
	}
	return "calibrating"
}

// BackgroundModel builds a reference "empty scene" image as the per-pixel
// median of a fixed number of calibration frames. The median suppresses
// transient motion during calibration: a single object passing through the
// scene does not corrupt the reference the way an average would.
//
// A model accumulates exactly quota samples, freezes the computed reference,
// and stays ready until Reset returns it to the accumulating state.
type BackgroundModel struct {
	quota     int
	samples   []*image.Gray
	reference *image.Gray
}

// NewBackgroundModel creates a model that calibrates over quota frames.
// quota must be >= 1; this is enforced by configuration validation.
func NewBackgroundModel(quota int) *BackgroundModel {
	return &BackgroundModel{
		quota:   quota,
		samples: make([]*image.Gray, 0, quota),
	}
}

// Ingest adds one grayscale calibration frame. When the quota is reached the
// per-pixel median is computed and frozen as the reference image. Ingesting
// into an already-ready model is a no-op and reports Ready.
func (m *BackgroundModel) Ingest(frame *image.Gray) (CalibrationStatus, error) {
	if m.reference != nil {
		return Ready, nil
	}

	if len(m.samples) > 0 && !frame.Bounds().Eq(m.samples[0].Bounds()) {
		return Calibrating, fmt.Errorf("calibration frame bounds %v do not match %v",
			frame.Bounds(), m.samples[0].Bounds())
	}

	sample := image.NewGray(frame.Bounds())
	copy(sample.Pix, frame.Pix)
	m.samples = append(m.samples, sample)

	if len(m.samples) < m.quota {
		return Calibrating, nil
	}

	m.reference = medianOf(m.samples)
	m.samples = nil
	return Ready, nil
}

// Ready reports whether calibration has completed.
func (m *BackgroundModel) Ready() bool {
	return m.reference != nil
}

// Reference returns the frozen reference image, or ErrNotReady while the
// model is still calibrating.
func (m *BackgroundModel) Reference() (*image.Gray, error) {
	if m.reference == nil {
		return nil, ErrNotReady
	}
	return m.reference, nil
}

// Pending returns how many calibration frames have been accumulated and the
// quota required, for progress reporting.
func (m *BackgroundModel) Pending() (got, want int) {
	return len(m.samples), m.quota
}

// Reset discards the reference and all accumulated samples, returning the
// model to the calibrating state. Resetting a model that is already
// calibrating is a no-op: it still needs a full quota of fresh ingests.
func (m *BackgroundModel) Reset() {
	if m.reference == nil && len(m.samples) == 0 {
		return
	}
	m.reference = nil
	m.samples = make([]*image.Gray, 0, m.quota)
}

// medianOf computes the per-pixel median across a stack of equally sized
// grayscale images. For an even stack the two middle values are averaged.
func medianOf(stack []*image.Gray) *image.Gray {
	out := image.NewGray(stack[0].Bounds())
	n := len(stack)

	if n == 1 {
		copy(out.Pix, stack[0].Pix)
		return out
	}

	column := make([]uint8, n)
	for i := range out.Pix {
		for j, sample := range stack {
			column[j] = sample.Pix[i]
		}
		slices.Sort(column)
		if n%2 == 1 {
			out.Pix[i] = column[n/2]
		} else {
			out.Pix[i] = uint8((int(column[n/2-1]) + int(column[n/2])) / 2)
		}
	}
	return out
}
