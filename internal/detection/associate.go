package detection

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultAssociationThreshold is the IoU a cross-model pair must exceed to merge.
const DefaultAssociationThreshold = 0.5

// MatchPolicy selects how primary detections are paired with secondary ones.
type MatchPolicy int

const (
	// FirstMatch takes the first secondary detection, in list order, whose IoU
	// exceeds the threshold. Secondary detections are not reserved.
	FirstMatch MatchPolicy = iota

	// BestMatch assigns pairs greedily by descending IoU, each detection used once.
	BestMatch
)

func (p MatchPolicy) String() string {
	switch p {
	case FirstMatch:
		return "first"
	case BestMatch:
		return "best"
	default:
		return fmt.Sprintf("MatchPolicy(%d)", int(p))
	}
}

// ParseMatchPolicy parses "first" or "best" (case-insensitive).
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first-match":
		return FirstMatch, nil
	case "best", "best-match":
		return BestMatch, nil
	default:
		return FirstMatch, fmt.Errorf("unknown match policy: %s", s)
	}
}

// Match records one primary/secondary pairing.
type Match struct {
	Primary   int     `json:"primary"`   // Index into the primary list
	Secondary int     `json:"secondary"` // Index into the secondary list
	IoU       float64 `json:"iou"`       // Overlap of the two original boxes
}

// Association is the outcome of pairing two detection lists.
type Association struct {
	// Detections has one entry per primary detection, in primary order.
	Detections List `json:"detections"`

	// Matches lists every pairing that produced a merged detection.
	Matches []Match `json:"matches"`

	// Dropped is the number of secondary detections that matched nothing.
	Dropped int `json:"dropped"`
}

// Associator pairs detections from two models by overlap and averages each pair.
//
// The zero value is usable: threshold 0 (any positive overlap), FirstMatch,
// float coordinates. An Associator holds no state and is safe for concurrent
// use.
//
// # Merged Detections
//
// A matched pair becomes one detection with:
//   - the primary detection's label (labels are never compared)
//   - the mean of the two confidences
//   - the coordinate-wise mean of the two boxes, truncated to whole pixels
//     when IntegerPixels is set
type Associator struct {
	// Threshold is the IoU a pair must strictly exceed.
	Threshold float64

	// Policy selects first-match or best-match pairing.
	Policy MatchPolicy

	// IntegerPixels truncates merged box coordinates to whole pixels.
	IntegerPixels bool
}

// Associate merges primary with secondary using first-match at threshold.
//
// Parameters:
//   - primary: Detections from the primary model. Their order and labels are
//     kept in the result.
//   - secondary: Detections from the secondary model.
//   - threshold: IoU a pair must strictly exceed to merge, in [0, 1].
//
// Returns:
//   - List: Exactly one entry per primary detection, in primary order. Each
//     entry is either the merged detection or the primary detection
//     unchanged. Secondary detections without a match are dropped. The result
//     is never nil.
//
// An empty secondary list returns a copy of primary; an empty primary list
// returns an empty list whatever secondary holds.
func Associate(primary, secondary List, threshold float64) List {
	return Associator{Threshold: threshold}.Associate(primary, secondary).Detections
}

// Associate pairs primary with secondary according to the associator settings.
//
// Returns an Association with the merged list (one entry per primary
// detection, in primary order), the pairs that were merged, and the number of
// secondary detections that were never used.
//
// # Policies
//
//   - FirstMatch: for each primary detection in order, the first secondary
//     detection with IoU > Threshold. The same secondary detection may merge
//     into several primaries.
//   - BestMatch: every candidate pair above Threshold is ranked by IoU
//     (ties by primary index, then secondary index) and taken greedily, so
//     each detection on either side is used at most once.
func (a Associator) Associate(primary, secondary List) *Association {
	var matches []Match
	switch a.Policy {
	case BestMatch:
		matches = a.bestMatches(primary, secondary)
	default:
		matches = a.firstMatches(primary, secondary)
	}

	byPrimary := make(map[int]Match, len(matches))
	used := make(map[int]bool, len(matches))
	for _, m := range matches {
		byPrimary[m.Primary] = m
		used[m.Secondary] = true
	}

	out := make(List, 0, len(primary))
	for i, p := range primary {
		m, ok := byPrimary[i]
		if !ok {
			out = append(out, p)
			continue
		}
		out = append(out, a.combine(p, secondary[m.Secondary]))
	}

	return &Association{
		Detections: out,
		Matches:    matches,
		Dropped:    len(secondary) - len(used),
	}
}

// firstMatches scans secondary in order for each primary detection.
func (a Associator) firstMatches(primary, secondary List) []Match {
	matches := make([]Match, 0)
	for i, p := range primary {
		for j, s := range secondary {
			iou := IoU(p.box, s.box)
			if iou > a.Threshold {
				matches = append(matches, Match{Primary: i, Secondary: j, IoU: iou})
				break
			}
		}
	}
	return matches
}

// bestMatches assigns the highest-IoU pairs first, using each side once.
func (a Associator) bestMatches(primary, secondary List) []Match {
	candidates := make([]Match, 0)
	for i, p := range primary {
		for j, s := range secondary {
			if iou := IoU(p.box, s.box); iou > a.Threshold {
				candidates = append(candidates, Match{Primary: i, Secondary: j, IoU: iou})
			}
		}
	}

	// Candidates are generated in (primary, secondary) order, so a stable sort
	// breaks IoU ties by primary index, then secondary index.
	sort.SliceStable(candidates, func(x, y int) bool {
		return candidates[x].IoU > candidates[y].IoU
	})

	takenP := make(map[int]bool)
	takenS := make(map[int]bool)
	matches := make([]Match, 0)
	for _, c := range candidates {
		if takenP[c.Primary] || takenS[c.Secondary] {
			continue
		}
		takenP[c.Primary] = true
		takenS[c.Secondary] = true
		matches = append(matches, c)
	}

	sort.Slice(matches, func(x, y int) bool {
		return matches[x].Primary < matches[y].Primary
	})
	return matches
}

// combine averages a matched pair, keeping the primary label.
func (a Associator) combine(p, s Detection) Detection {
	box := MeanBox(p.box, s.box)
	if a.IntegerPixels {
		box = box.Truncate()
	}
	return Detection{
		label:      p.label,
		confidence: (p.confidence + s.confidence) / 2,
		box:        box,
	}
}
