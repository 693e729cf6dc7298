// Package recording writes motion clips to disk and enforces the
// single-session recording policy.
package recording

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"zonewatch/internal/video"
)

// Clip is an open output file that frames are appended to.
type Clip interface {
	// Write appends one frame to the clip.
	Write(frame *video.Frame) error
	// Name returns the path of the file being written.
	Name() string
	// Close finalizes the clip.
	Close() error
}

// Recorder opens clips. Implementations choose the container format.
type Recorder interface {
	// Open starts a new clip whose name is derived from start.
	Open(start time.Time) (Clip, error)
}

// MJPEGRecorder writes clips as concatenated JPEG frames (MJPEG). The
// format plays back in ffplay/vlc and needs no encoder process, which keeps
// the write path to a single file append per frame.
type MJPEGRecorder struct {
	dir     string
	quality int
}

// NewMJPEGRecorder creates a recorder that writes clips into dir,
// creating the directory if it does not exist.
func NewMJPEGRecorder(dir string) (*MJPEGRecorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	return &MJPEGRecorder{dir: dir, quality: 85}, nil
}

// Open creates a new clip file named motion_<timestamp>.mjpeg.
func (r *MJPEGRecorder) Open(start time.Time) (Clip, error) {
	name := fmt.Sprintf("motion_%s.mjpeg", start.Format("20060102_150405"))
	path := filepath.Join(r.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create clip file: %w", err)
	}
	return &mjpegClip{f: f, quality: r.quality}, nil
}

var _ Recorder = (*MJPEGRecorder)(nil)

type mjpegClip struct {
	f       *os.File
	quality int
}

func (c *mjpegClip) Write(frame *video.Frame) error {
	data := frame.Data
	if data == nil {
		// Frames from non-JPEG sources carry only the decoded image.
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: c.quality}); err != nil {
			return fmt.Errorf("failed to encode frame: %w", err)
		}
		data = buf.Bytes()
	}
	if _, err := c.f.Write(data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

func (c *mjpegClip) Name() string {
	return c.f.Name()
}

func (c *mjpegClip) Close() error {
	return c.f.Close()
}
