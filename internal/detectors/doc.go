// Package detectors provides the object detectors the hybrid pipeline pairs up.
//
// Each detector turns a capture.Frame into a detection.List. Detectors are built
// by kind with New and injected into pipeline.Runner as the primary and the
// secondary model; the merge engine never knows which kind it is combining.
//
// # Detector Kinds
//
//   - shapes: Rectangles by edge contours, plus circles by the Hough transform
//   - blobs: Connected regions darker than a luminance threshold
//   - text: Windows whose edge pattern looks like lines of text
//   - ocr: Tesseract word boxes, labelled with the recognised word
//   - file: Precomputed detections read from JSON files beside the frames
//
// The image heuristics are deliberately simple and need no model weights. The
// "file" kind is how results from a real model run elsewhere (a YOLO or RCNN
// export, for example) are fed into the merge.
//
// # Algorithm Overview
//
// The image detectors follow a similar pipeline:
//
//  1. Preprocessing: Grayscale (and for blobs, a Gaussian blur) through bild
//  2. Feature Extraction: Canny edges and contours, Hough voting, thresholded
//     connected components, or sliding-window edge statistics
//  3. Filtering: Drop regions below MinArea or MinConfidence, merge overlaps
//  4. Result Formatting: One detection.Detection per region
//
// # Confidence Scores
//
// Every detector reports confidence in [0, 1] so that the merge engine can
// average scores from different kinds. Confidence calculation varies by kind:
//   - Rectangles: How closely the contour length matches the box perimeter
//   - Circles: Hough votes for the centre relative to the circumference
//   - Blobs: Fraction of the bounding box the region fills
//   - Text: Edge density weighted by horizontal structure
//   - OCR: Tesseract word confidence divided by 100
//   - File: As recorded in the file
//
// MinScore wraps any detector with a confidence floor; the pipeline applies it
// to the secondary detector (HYBRID_SECONDARY_MIN_SCORE, default 0.5).
//
// # File Detector Layout
//
// For a frame "street.png" and a detector named "yolo" the file detector reads
// "<dir>/street.yolo.json":
//
//	[
//	  {"label": "car", "confidence": 0.91, "box": [12, 40, 118, 96]},
//	  {"label": "person", "confidence": 0.64, "box": [200, 30, 230, 110]}
//	]
//
// A missing file means the model found nothing in that frame. Records that
// fail validation are logged and skipped; the rest of the frame is kept.
//
// # Coordinate System
//
// All boxes use the image convention: origin at top-left, X rightward, Y
// downward, inclusive top-left and exclusive bottom-right. Detectors report
// boxes in the frame's own coordinate space, so cascade crops are mapped back
// by the pipeline, not here.
//
// # Limitations
//
// The image heuristics work best on clean, high-contrast input:
//   - Dark objects on a light background (blobs)
//   - Solid outlines close to their ideal forms (shapes)
//   - Printed, horizontal text (text, ocr)
//
// Noisy photographs produce many low-confidence detections; pair such input
// with the file detector or raise MinArea and MinScore.
package detectors
