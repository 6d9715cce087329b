// Package detection implements the merge engine that combines the outputs of two
// independently run object detectors into one consensus list.
//
// The package is pure: every function is deterministic, allocation-only and safe
// for concurrent use. Nothing here performs I/O or keeps state between frames.
//
// # Data Model
//
// A Detection is an immutable (label, confidence, box) value. Detections can only
// be built through New, which rejects:
//   - confidence outside [0, 1] (ErrConfidenceRange)
//   - NaN or infinite coordinates, or X1 > X2 / Y1 > Y2 (ErrMalformedBox)
//
// Boxes with zero area are accepted but treated as degenerate: their IoU with any
// other box is 0, so they never match and never suppress anything.
//
// # Coordinate System
//
// Boxes are (X1, Y1, X2, Y2) in source-image pixel space, origin top-left. Areas
// are computed as (X2-X1)*(Y2-Y1), so a 10x10 box is [0,0,10,10].
//
// # Merge Pipeline
//
// A frame's merge runs in two stages:
//
//  1. Association: every primary detection looks for an overlapping secondary
//     detection (IoU above the association threshold). A match produces one
//     detection with the primary label, the mean confidence and the
//     coordinate-wise mean box. Unmatched primary detections pass through;
//     unmatched secondary detections are dropped.
//  2. Suppression: greedy non-maximum suppression over the associated list,
//     highest confidence first, across labels.
//
// # Match Policies
//
// FirstMatch pairs each primary detection with the first secondary detection in
// list order that clears the threshold. A secondary detection is not reserved, so
// it may be paired with several primary detections. This is a known limitation
// kept for compatibility with existing detector ensembles.
//
// BestMatch sorts every candidate pair by IoU and assigns greedily, using each
// detection on either side at most once.
package detection
