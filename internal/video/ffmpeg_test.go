package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegBytes(payload ...byte) []byte {
	frame := []byte{0xFF, 0xD8}
	frame = append(frame, payload...)
	return append(frame, 0xFF, 0xD9)
}

func TestExtractJPEGFrame(t *testing.T) {
	frame := jpegBytes(0x01, 0x02, 0x03)
	buf := append([]byte{}, frame...)

	got := ExtractJPEGFrame(&buf)
	assert.Equal(t, frame, got)
	assert.Empty(t, buf, "a fully consumed buffer is left empty")
}

func TestExtractJPEGFrameSkipsLeadingGarbage(t *testing.T) {
	frame := jpegBytes(0xAA)
	buf := append([]byte{0x00, 0x11, 0x22}, frame...)

	got := ExtractJPEGFrame(&buf)
	assert.Equal(t, frame, got)
}

func TestExtractJPEGFrameIncomplete(t *testing.T) {
	// Start marker present, end marker still in flight.
	buf := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03}
	before := len(buf)

	assert.Nil(t, ExtractJPEGFrame(&buf))
	assert.Len(t, buf, before, "incomplete frames stay buffered")
}

func TestExtractJPEGFrameNoStartMarker(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	assert.Nil(t, ExtractJPEGFrame(&buf))
}

func TestExtractJPEGFrameLeavesFollowingData(t *testing.T) {
	first := jpegBytes(0x01)
	second := jpegBytes(0x02)
	buf := append(append([]byte{}, first...), second...)

	got := ExtractJPEGFrame(&buf)
	require.Equal(t, first, got)

	got = ExtractJPEGFrame(&buf)
	assert.Equal(t, second, got, "back to back frames extract in order")
}

func TestIsNetworkSource(t *testing.T) {
	assert.True(t, isNetworkSource("rtsp://cam.local/stream"))
	assert.True(t, isNetworkSource("http://cam.local/mjpeg"))
	assert.True(t, isNetworkSource("https://cam.local/mjpeg"))
	assert.False(t, isNetworkSource("/dev/video0"))
	assert.False(t, isNetworkSource("clip.mp4"))
}
