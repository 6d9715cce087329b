package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/hybrid-detect/internal/detection"
)

// EncodedImage is a PNG image packed for a JSON tool response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNGBase64 encodes img as a base64 PNG.
func EncodePNGBase64(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Crop extracts the region (x1,y1)-(x2,y2) and optionally rescales it.
//
// A scale of 0 or 1 keeps the original size.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*EncodedImage, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	var cropped image.Image = imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		w := int(float64(cropped.Bounds().Dx()) * scale)
		h := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, w, h, imaging.Lanczos)
	}

	return EncodePNGBase64(cropped)
}

// CropBox cuts a detection box out of an image for cascade detection.
//
// Parameters:
//   - img: Source image. It is not modified.
//   - box: Region to cut. Fractional edges are rounded outward (floor for the
//     top-left, ceil for the bottom-right) so no part of the box is lost.
//   - pad: Pixels added on every side before clipping to the image bounds.
//
// Returns:
//   - *image.NRGBA: The crop, re-based so its bounds start at (0, 0).
//   - image.Point: The crop's top-left corner in img coordinates. Translate
//     boxes found in the crop by this offset to map them back into img.
//   - error: Non-nil if the padded box does not overlap the image at all.
func CropBox(img image.Image, box detection.Box, pad int) (*image.NRGBA, image.Point, error) {
	r := image.Rect(
		int(math.Floor(box.X1))-pad,
		int(math.Floor(box.Y1))-pad,
		int(math.Ceil(box.X2))+pad,
		int(math.Ceil(box.Y2))+pad,
	).Intersect(img.Bounds())

	if r.Empty() {
		return nil, image.Point{}, fmt.Errorf("box %v does not overlap image bounds %v", box, img.Bounds())
	}

	// imaging.Crop re-bases the result at (0,0).
	return imaging.Crop(img, r), r.Min, nil
}

// ResizeToWidth scales img to width, keeping its aspect ratio. Images already
// at most width pixels wide, or a width of 0, are returned unchanged.
func ResizeToWidth(img image.Image, width int) image.Image {
	if width <= 0 || img.Bounds().Dx() <= width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// Save writes img to path, choosing the format from the extension.
func Save(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
