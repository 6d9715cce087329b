package detection

import "math"

// IoU returns the intersection-over-union of two boxes.
//
// Parameters:
//   - a, b: Boxes in the same pixel space. Order does not matter.
//
// Returns:
//   - float64: overlap area divided by union area, in [0, 1]. Identical
//     non-degenerate boxes give exactly 1.
//
// # Edge Cases
//
//   - Disjoint boxes, and boxes that only share an edge, give 0.
//   - A degenerate (zero-area) box gives 0 against anything, itself included,
//     so it can never satisfy a "> threshold" test.
//   - The union is only used as a divisor when positive, so the result is
//     never NaN or infinite.
func IoU(a, b Box) float64 {
	if a.Degenerate() || b.Degenerate() {
		return 0
	}

	ix1 := math.Max(a.X1, b.X1)
	iy1 := math.Max(a.Y1, b.Y1)
	ix2 := math.Min(a.X2, b.X2)
	iy2 := math.Min(a.Y2, b.Y2)

	overlap := math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)
	if overlap == 0 {
		return 0
	}

	union := a.Area() + b.Area() - overlap
	if union <= 0 {
		return 0
	}
	return math.Min(overlap/union, 1)
}
