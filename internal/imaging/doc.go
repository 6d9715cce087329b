// Package imaging holds the image plumbing shared by the detectors, the frame
// pipeline and the MCP tools.
//
// It covers four concerns:
//
//   - Loading: ImageCache decodes PNG, JPEG and GIF files once and serves the
//     decoded image to later callers.
//   - Cropping: CropBox cuts a detection box out of a frame for cascade
//     detection and returns the offset needed to map results back.
//   - Edges: EdgeMap runs Canny edge detection on a bild-blurred grayscale copy
//     of the frame. The shape and text detectors work on this map.
//   - Rendering: Annotate draws labelled detection boxes with a stable colour
//     per label, and EncodePNGBase64 packs images for tool responses.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left, X to the right and
// Y downward. Regions are half-open: (x1,y1) is inclusive and (x2,y2) is
// exclusive, which matches image.Rectangle and detection.Box.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The remaining functions are pure and
// never modify their input image.
package imaging
