package detect

import "sort"

// Filter drops detections below confThreshold and sorts the remainder by
// confidence descending.
func Filter(dets []Candidate, confThreshold float64) []Candidate {
	kept := make([]Candidate, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= confThreshold {
			kept = append(kept, d)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	return kept
}

// NMS performs greedy, class-aware non-maximum suppression: iterate
// sorted, keep each candidate if its IoU with every already-kept
// same-class box is <= nmsThreshold. dets must already be sorted by
// confidence descending (Filter does this). Worst-case O(N^2), accepted
// since N is already bounded by the confidence threshold.
func NMS(dets []Candidate, nmsThreshold float64) []Candidate {
	kept := make([]Candidate, 0, len(dets))
	for _, cand := range dets {
		suppressed := false
		for _, k := range kept {
			if k.ClassID != cand.ClassID {
				continue
			}
			if k.BBox.IoU(cand.BBox) > nmsThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}
