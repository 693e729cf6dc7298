package motion

import "image"

// FilterROI keeps only the regions whose bounding rectangle intersects the
// region of interest. The test is intersection, not containment, so a region
// partially entering the zone still counts, and regions are returned
// unclipped. An empty result is a normal outcome, not an error. Input order
// is preserved.
func FilterROI(regions []Region, roi image.Rectangle) []Region {
	if len(regions) == 0 {
		return nil
	}
	kept := make([]Region, 0, len(regions))
	for _, r := range regions {
		if r.Bounds.Overlaps(roi) {
			kept = append(kept, r)
		}
	}
	return kept
}
