package recording

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonewatch/internal/video"
)

func TestMJPEGRecorderWritesRawJPEG(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewMJPEGRecorder(dir)
	require.NoError(t, err)

	start := time.Date(2026, time.March, 14, 23, 5, 42, 0, time.UTC)
	clip, err := rec.Open(start)
	require.NoError(t, err)

	data := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	require.NoError(t, clip.Write(&video.Frame{Data: data}))
	require.NoError(t, clip.Write(&video.Frame{Data: data}))
	require.NoError(t, clip.Close())

	assert.Equal(t, filepath.Join(dir, "motion_20260314_230542.mjpeg"), clip.Name())

	written, err := os.ReadFile(clip.Name())
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, data...), data...), written)
}

func TestMJPEGRecorderEncodesDecodedFrames(t *testing.T) {
	rec, err := NewMJPEGRecorder(t.TempDir())
	require.NoError(t, err)

	clip, err := rec.Open(time.Now())
	require.NoError(t, err)

	img := image.NewGray(image.Rect(0, 0, 8, 8))
	require.NoError(t, clip.Write(&video.Frame{Image: img}))
	require.NoError(t, clip.Close())

	written, err := os.ReadFile(clip.Name())
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(written))
	assert.NoError(t, err, "frames without raw data are encoded to JPEG")
}

func TestMJPEGRecorderCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "recordings")
	_, err := NewMJPEGRecorder(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
