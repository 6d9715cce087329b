package detection

import "sort"

// DefaultSuppressionThreshold is the IoU above which a weaker detection is removed.
const DefaultSuppressionThreshold = 0.5

// Suppress performs greedy non-maximum suppression across all labels.
//
// Parameters:
//   - list: Detections to filter. The slice is not modified.
//   - threshold: IoU above which the weaker of two detections is removed,
//     in [0, 1]. A pair at exactly threshold is kept.
//
// Returns:
//   - List: The surviving detections, ordered by descending confidence, in a
//     newly allocated slice. Never nil.
//
// # Algorithm
//
// Detections are ranked by confidence with a stable sort, so equal scores keep
// their input order. Walking that ranking, each detection not yet removed is
// kept and marks every lower-ranked detection overlapping it with
// IoU > threshold as removed. Labels are ignored: a "car" box can suppress a
// "truck" box at the same place.
//
// # Guarantees
//
//   - No two surviving detections overlap with IoU > threshold.
//   - Suppress(Suppress(l, t), t) equals Suppress(l, t).
//   - Degenerate boxes are never removed and never remove anything.
func Suppress(list List, threshold float64) List {
	order := make([]int, len(list))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return list[order[a]].confidence > list[order[b]].confidence
	})

	removed := make([]bool, len(list))
	kept := make(List, 0, len(list))
	for rank, idx := range order {
		if removed[idx] {
			continue
		}
		best := list[idx]
		kept = append(kept, best)

		for _, other := range order[rank+1:] {
			if removed[other] {
				continue
			}
			if IoU(best.box, list[other].box) > threshold {
				removed[other] = true
			}
		}
	}
	return kept
}
