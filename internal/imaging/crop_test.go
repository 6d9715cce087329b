package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/hybrid-detect/internal/detection"
)

func TestCrop(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{255, 0, 0, 255})

	result, err := Crop(img, 0, 0, 50, 40, 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if result.Width != 50 || result.Height != 40 {
		t.Errorf("dimensions: got %dx%d, want 50x40", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}
	if _, err := base64.StdEncoding.DecodeString(result.ImageBase64); err != nil {
		t.Errorf("failed to decode base64: %v", err)
	}
}

func TestCrop_WithScale(t *testing.T) {
	img := solidImage(100, 100, color.Black)

	tests := []struct {
		scale float64
		want  int
	}{
		{2.0, 100},
		{0.5, 25},
		{0, 50},
	}
	for _, tt := range tests {
		result, err := Crop(img, 0, 0, 50, 50, tt.scale)
		if err != nil {
			t.Fatalf("Crop(scale=%v) failed: %v", tt.scale, err)
		}
		if result.Width != tt.want || result.Height != tt.want {
			t.Errorf("scale %v: got %dx%d, want %dx%d", tt.scale, result.Width, result.Height, tt.want, tt.want)
		}
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := solidImage(100, 100, color.Black)

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"outside right", 50, 50, 150, 90},
		{"negative", -1, 0, 10, 10},
		{"inverted", 50, 50, 10, 10},
		{"empty", 10, 10, 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, 1); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCropBox(t *testing.T) {
	img := rectImage(100, 100, image.Rect(40, 40, 60, 60))

	crop, offset, err := CropBox(img, detection.Box{X1: 40.5, Y1: 40, X2: 59.2, Y2: 60}, 5)
	if err != nil {
		t.Fatalf("CropBox failed: %v", err)
	}
	if offset != (image.Point{35, 35}) {
		t.Errorf("offset: got %v, want (35,35)", offset)
	}
	if b := crop.Bounds(); b.Min != (image.Point{}) || b.Dx() != 30 || b.Dy() != 30 {
		t.Errorf("crop bounds: got %v, want (0,0)-(30,30)", b)
	}

	// (5,5) in the crop is (40,40) in the frame, inside the black square.
	if r, _, _, _ := crop.At(5, 5).RGBA(); r != 0 {
		t.Errorf("pixel (5,5) should be black, got r=%d", r>>8)
	}
}

func TestCropBox_ClipsToImage(t *testing.T) {
	img := solidImage(50, 50, color.White)

	crop, offset, err := CropBox(img, detection.Box{X1: 40, Y1: -10, X2: 80, Y2: 10}, 0)
	if err != nil {
		t.Fatalf("CropBox failed: %v", err)
	}
	if offset != (image.Point{40, 0}) {
		t.Errorf("offset: got %v, want (40,0)", offset)
	}
	if b := crop.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("crop size: got %dx%d, want 10x10", b.Dx(), b.Dy())
	}

	if _, _, err := CropBox(img, detection.Box{X1: 60, Y1: 60, X2: 70, Y2: 70}, 0); err == nil {
		t.Error("expected error for a box outside the image")
	}
}

func TestResizeToWidth(t *testing.T) {
	img := solidImage(200, 100, color.White)

	if got := ResizeToWidth(img, 0); got != image.Image(img) {
		t.Error("width 0 should return the input")
	}
	if got := ResizeToWidth(img, 400); got != image.Image(img) {
		t.Error("narrower image should be returned unchanged")
	}

	got := ResizeToWidth(img, 100)
	if b := got.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("resized: got %dx%d, want 100x50", b.Dx(), b.Dy())
	}
}
