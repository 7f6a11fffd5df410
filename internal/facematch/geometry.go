package facematch

import "image"

// overlapThreshold is the IoU above which a later detection is considered
// the same face as an earlier one.
const overlapThreshold = 0.5

// IoU calculates Intersection over Union between two regions.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}

	intersection := area(inter)
	union := area(a) + area(b) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func area(r image.Rectangle) float64 {
	return float64(r.Dx()) * float64(r.Dy())
}

// SuppressOverlaps drops regions overlapping an earlier region by more than
// threshold. Order is preserved, so the first region always survives.
func SuppressOverlaps(regions []image.Rectangle, threshold float64) []image.Rectangle {
	if len(regions) < 2 {
		return regions
	}
	kept := make([]image.Rectangle, 0, len(regions))
	for _, r := range regions {
		duplicate := false
		for _, k := range kept {
			if IoU(r, k) > threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, r)
		}
	}
	return kept
}
