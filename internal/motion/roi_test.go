package motion

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterROIKeepsOverlapping(t *testing.T) {
	roi := image.Rect(0, 0, 50, 50)
	regions := []Region{
		{Bounds: image.Rect(10, 10, 20, 20), Area: 100}, // inside
		{Bounds: image.Rect(40, 40, 60, 60), Area: 400}, // partial overlap
		{Bounds: image.Rect(80, 80, 90, 90), Area: 100}, // outside
		{Bounds: image.Rect(50, 50, 60, 60), Area: 100}, // touching edge only
	}

	kept := FilterROI(regions, roi)
	assert.Len(t, kept, 2)
	assert.Equal(t, image.Rect(10, 10, 20, 20), kept[0].Bounds)
	assert.Equal(t, image.Rect(40, 40, 60, 60), kept[1].Bounds, "partially overlapping regions survive unclipped")
}

func TestFilterROIAllOutside(t *testing.T) {
	roi := image.Rect(0, 0, 10, 10)
	regions := []Region{
		{Bounds: image.Rect(20, 20, 30, 30), Area: 100},
	}

	assert.Empty(t, FilterROI(regions, roi), "motion entirely outside the roi is discarded")
}

func TestFilterROIEmptyInput(t *testing.T) {
	assert.Nil(t, FilterROI(nil, image.Rect(0, 0, 10, 10)))
	assert.Nil(t, FilterROI([]Region{}, image.Rect(0, 0, 10, 10)))
}
