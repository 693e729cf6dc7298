package motion

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestBackgroundModelCalibration(t *testing.T) {
	m := NewBackgroundModel(3)

	for i := 0; i < 2; i++ {
		status, err := m.Ingest(uniformGray(8, 8, 100))
		require.NoError(t, err)
		assert.Equal(t, Calibrating, status, "model should still be calibrating after %d frames", i+1)
		assert.False(t, m.Ready())
	}

	_, err := m.Reference()
	assert.ErrorIs(t, err, ErrNotReady, "reference must be unavailable before calibration completes")

	got, want := m.Pending()
	assert.Equal(t, 2, got)
	assert.Equal(t, 3, want)

	status, err := m.Ingest(uniformGray(8, 8, 100))
	require.NoError(t, err)
	assert.Equal(t, Ready, status, "model should be ready exactly at the frame quota")
	assert.True(t, m.Ready())

	ref, err := m.Reference()
	require.NoError(t, err)
	assert.Equal(t, uint8(100), ref.Pix[0])
}

func TestBackgroundModelMedian(t *testing.T) {
	m := NewBackgroundModel(3)
	for _, v := range []uint8{10, 200, 20} {
		_, err := m.Ingest(uniformGray(4, 4, v))
		require.NoError(t, err)
	}

	ref, err := m.Reference()
	require.NoError(t, err)
	assert.Equal(t, uint8(20), ref.Pix[0], "median of {10, 200, 20} is 20")
}

func TestBackgroundModelMedianEvenStack(t *testing.T) {
	m := NewBackgroundModel(4)
	for _, v := range []uint8{10, 20, 30, 41} {
		_, err := m.Ingest(uniformGray(4, 4, v))
		require.NoError(t, err)
	}

	ref, err := m.Reference()
	require.NoError(t, err)
	assert.Equal(t, uint8(25), ref.Pix[0], "even stack averages the two middle samples")
}

func TestBackgroundModelFrozenAfterReady(t *testing.T) {
	m := NewBackgroundModel(1)
	_, err := m.Ingest(uniformGray(4, 4, 50))
	require.NoError(t, err)

	status, err := m.Ingest(uniformGray(4, 4, 250))
	require.NoError(t, err)
	assert.Equal(t, Ready, status)

	ref, err := m.Reference()
	require.NoError(t, err)
	assert.Equal(t, uint8(50), ref.Pix[0], "frames ingested after readiness must not move the reference")
}

func TestBackgroundModelReset(t *testing.T) {
	m := NewBackgroundModel(2)
	for i := 0; i < 2; i++ {
		_, err := m.Ingest(uniformGray(4, 4, 80))
		require.NoError(t, err)
	}
	require.True(t, m.Ready())

	m.Reset()
	assert.False(t, m.Ready(), "reset must discard the reference")
	got, _ := m.Pending()
	assert.Equal(t, 0, got)

	// Reset while calibrating is idempotent.
	_, err := m.Ingest(uniformGray(4, 4, 80))
	require.NoError(t, err)
	m.Reset()
	m.Reset()
	got, _ = m.Pending()
	assert.Equal(t, 0, got)
}

func TestBackgroundModelRejectsMismatchedBounds(t *testing.T) {
	m := NewBackgroundModel(2)
	_, err := m.Ingest(uniformGray(4, 4, 80))
	require.NoError(t, err)

	_, err = m.Ingest(uniformGray(8, 8, 80))
	assert.Error(t, err, "frames with different bounds must be rejected")

	got, _ := m.Pending()
	assert.Equal(t, 1, got, "rejected frames must not count toward the quota")
}
