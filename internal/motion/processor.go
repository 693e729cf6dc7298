package motion

import (
	"image"
	"sort"

	"github.com/disintegration/gift"
	"github.com/harrydb/go/img/grayscale"
	"github.com/nfnt/resize"
)

// Tuning defaults, applied by the configuration layer when a field is
// absent. They mirror the classical grayscale-diff pipeline: Gaussian
// smoothing, a hard intensity cutoff on the per-pixel difference, and a
// couple of dilation passes to merge fragmented blobs.
const (
	DefaultThreshold        = 25
	DefaultBlurSigma        = 3.5
	DefaultDilateIterations = 2
)

// Region is a candidate motion region: a connected component of the binary
// motion mask, described by its bounding rectangle and pixel area. Regions
// are ephemeral, produced and discarded within a single tick.
type Region struct {
	Bounds image.Rectangle
	Area   float64 // pixel²
}

// ProcessorConfig tunes the FrameProcessor. All values are used as given;
// the Default* constants above are applied at the configuration layer, so a
// zero Threshold genuinely means any nonzero difference counts as motion.
type ProcessorConfig struct {
	Threshold        uint8   // mask cutoff, mask = 1 iff |diff| > Threshold
	BlurSigma        float32 // Gaussian smoothing strength, 0 disables
	DilateIterations int     // mask dilation passes
	MinArea          float64 // regions below this pixel² area are discarded
	MaxWidth         int     // downscale frames wider than this before differencing, 0 disables
}

// FrameProcessor turns a raw frame plus a background reference into the set
// of candidate motion regions for one tick. It is not safe for concurrent
// use; the pipeline processes one frame at a time.
type FrameProcessor struct {
	cfg     ProcessorConfig
	prep    *gift.GIFT
	dilate  *gift.GIFT
	scratch *image.Gray
}

// NewFrameProcessor creates a processor with the given tuning.
func NewFrameProcessor(cfg ProcessorConfig) *FrameProcessor {
	filters := []gift.Filter{gift.Grayscale()}
	if cfg.BlurSigma > 0 {
		filters = append(filters, gift.GaussianBlur(cfg.BlurSigma))
	}

	p := &FrameProcessor{
		cfg:  cfg,
		prep: gift.New(filters...),
	}
	if cfg.DilateIterations > 0 {
		p.dilate = gift.New(gift.Maximum(3, false))
	}
	return p
}

// Prepare converts a frame to the smoothed grayscale form used both for
// background calibration and for differencing. The returned scale is the
// factor by which the frame was shrunk (1.0 when no downscaling applied);
// Process uses it to map regions back to original frame coordinates.
func (p *FrameProcessor) Prepare(img image.Image) (*image.Gray, float64) {
	scale := 1.0
	if p.cfg.MaxWidth > 0 {
		if w := img.Bounds().Dx(); w > p.cfg.MaxWidth {
			scale = float64(w) / float64(p.cfg.MaxWidth)
			img = resize.Resize(uint(p.cfg.MaxWidth), 0, img, resize.Bilinear)
		}
	}

	gray := image.NewGray(p.prep.Bounds(img.Bounds()))
	p.prep.Draw(gray, img)
	return gray, scale
}

// Process computes the candidate motion regions of a prepared frame against
// the background reference. Regions smaller than MinArea (inclusive >=
// boundary) are discarded here and nowhere else. The result order is stable
// for a given input: top-to-bottom, left-to-right by bounding box origin.
func (p *FrameProcessor) Process(gray, reference *image.Gray, scale float64) []Region {
	mask := p.diffMask(gray, reference)

	for i := 0; i < p.cfg.DilateIterations; i++ {
		dilated := image.NewGray(mask.Bounds())
		p.dilate.Draw(dilated, mask)
		mask = dilated
	}

	components := grayscale.CoCos(mask, 255, grayscale.NEIGHBOR8)

	regions := make([]Region, 0, len(components))
	for _, points := range components {
		if len(points) == 0 {
			continue
		}
		bounds := image.Rectangle{Min: points[0], Max: points[0].Add(image.Pt(1, 1))}
		for _, pt := range points[1:] {
			bounds = bounds.Union(image.Rectangle{Min: pt, Max: pt.Add(image.Pt(1, 1))})
		}

		area := float64(len(points))
		if scale != 1.0 {
			area *= scale * scale
			bounds = scaleRect(bounds, scale)
		}
		if area >= p.cfg.MinArea {
			regions = append(regions, Region{Bounds: bounds, Area: area})
		}
	}

	sort.Slice(regions, func(i, j int) bool {
		a, b := regions[i].Bounds.Min, regions[j].Bounds.Min
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return regions[i].Area > regions[j].Area
	})
	return regions
}

// diffMask binarizes the absolute per-pixel difference between the frame
// and the reference. Mask pixels are 255 iff |diff| > Threshold.
func (p *FrameProcessor) diffMask(gray, reference *image.Gray) *image.Gray {
	if p.scratch == nil || !p.scratch.Bounds().Eq(gray.Bounds()) {
		p.scratch = image.NewGray(gray.Bounds())
	}
	mask := p.scratch
	thresh := int(p.cfg.Threshold)

	for i := range gray.Pix {
		d := int(gray.Pix[i]) - int(reference.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > thresh {
			mask.Pix[i] = 255
		} else {
			mask.Pix[i] = 0
		}
	}
	return mask
}

func scaleRect(r image.Rectangle, scale float64) image.Rectangle {
	return image.Rect(
		int(float64(r.Min.X)*scale),
		int(float64(r.Min.Y)*scale),
		int(float64(r.Max.X)*scale+0.5),
		int(float64(r.Max.Y)*scale+0.5),
	)
}
