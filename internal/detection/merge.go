package detection

import (
	"fmt"
	"math"
)

// MergeOptions configures a Merger. Both thresholds must be in [0, 1].
type MergeOptions struct {
	// AssociationThreshold is the cross-model IoU a pair must exceed to merge.
	AssociationThreshold float64

	// SuppressionThreshold is the IoU above which NMS removes a weaker detection.
	SuppressionThreshold float64

	// Policy selects first-match or best-match association.
	Policy MatchPolicy

	// IntegerPixels truncates merged boxes to whole pixels.
	IntegerPixels bool
}

// DefaultMergeOptions returns 0.5/0.5 thresholds with first-match pairing.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		AssociationThreshold: DefaultAssociationThreshold,
		SuppressionThreshold: DefaultSuppressionThreshold,
		Policy:               FirstMatch,
	}
}

// MergeResult is the outcome of merging one frame's detections.
type MergeResult struct {
	// Detections is the final list, ordered by descending confidence.
	Detections List `json:"detections"`

	// Matches lists the primary/secondary pairs that were merged.
	Matches []Match `json:"matches"`

	// Matched is the number of primary detections merged with a secondary one.
	Matched int `json:"matched"`

	// PassThrough is the number of primary detections kept unchanged.
	PassThrough int `json:"pass_through"`

	// Dropped is the number of secondary detections that matched nothing.
	Dropped int `json:"dropped"`

	// Suppressed is the number of associated detections removed by NMS.
	Suppressed int `json:"suppressed"`

	// Count is len(Detections).
	Count int `json:"count"`
}

// Merger runs association followed by suppression over one frame's detections.
//
// A Merger is immutable once built and holds no per-frame state, so a single
// instance is shared by the frame pipeline and every MCP tool call.
//
// # Example Usage
//
//	m, err := detection.NewMerger(detection.MergeOptions{
//	    AssociationThreshold: 0.5,
//	    SuppressionThreshold: 0.5,
//	    Policy:               detection.BestMatch,
//	})
//	if err != nil {
//	    return err
//	}
//	res := m.Merge(primary, secondary)
//	log.Printf("%d detections, %d merged, %d suppressed", res.Count, res.Matched, res.Suppressed)
type Merger struct {
	assoc    Associator
	suppress float64
}

// NewMerger validates opts and returns a Merger.
//
// # Errors
//
//   - Returns error if either threshold is NaN or outside [0, 1]
//   - Returns error if Policy is neither FirstMatch nor BestMatch
func NewMerger(opts MergeOptions) (*Merger, error) {
	if !ValidThreshold(opts.AssociationThreshold) {
		return nil, fmt.Errorf("association threshold %v outside [0,1]", opts.AssociationThreshold)
	}
	if !ValidThreshold(opts.SuppressionThreshold) {
		return nil, fmt.Errorf("suppression threshold %v outside [0,1]", opts.SuppressionThreshold)
	}
	if opts.Policy != FirstMatch && opts.Policy != BestMatch {
		return nil, fmt.Errorf("unsupported match policy %v", opts.Policy)
	}
	return &Merger{
		assoc: Associator{
			Threshold:     opts.AssociationThreshold,
			Policy:        opts.Policy,
			IntegerPixels: opts.IntegerPixels,
		},
		suppress: opts.SuppressionThreshold,
	}, nil
}

// ValidThreshold reports whether v is a usable IoU threshold: a number in
// [0, 1]. NaN is rejected since no IoU compares greater than it.
func ValidThreshold(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Options returns the configuration the merger was built with.
func (m *Merger) Options() MergeOptions {
	return MergeOptions{
		AssociationThreshold: m.assoc.Threshold,
		SuppressionThreshold: m.suppress,
		Policy:               m.assoc.Policy,
		IntegerPixels:        m.assoc.IntegerPixels,
	}
}

// Merge associates primary with secondary and suppresses redundant detections.
//
// Returns:
//   - *MergeResult: The final list plus its bookkeeping. Matched + PassThrough
//     always equals len(primary), and Count equals len(Detections).
//
// Neither input slice is modified.
func (m *Merger) Merge(primary, secondary List) *MergeResult {
	assoc := m.assoc.Associate(primary, secondary)
	final := Suppress(assoc.Detections, m.suppress)

	return &MergeResult{
		Detections:  final,
		Matches:     assoc.Matches,
		Matched:     len(assoc.Matches),
		PassThrough: len(primary) - len(assoc.Matches),
		Dropped:     assoc.Dropped,
		Suppressed:  len(assoc.Detections) - len(final),
		Count:       len(final),
	}
}

// Merge runs the default pipeline: first-match association at 0.5 followed by
// suppression at 0.5.
func Merge(primary, secondary List) List {
	assoc := Associate(primary, secondary, DefaultAssociationThreshold)
	return Suppress(assoc, DefaultSuppressionThreshold)
}
