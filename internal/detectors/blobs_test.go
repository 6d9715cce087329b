package detectors

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/hybrid-detect/internal/detection"
)

func TestBlobs_TwoObjects(t *testing.T) {
	img := solidImage(120, 80, color.White)
	fillRect(img, image.Rect(10, 10, 40, 30))
	fillRect(img, image.Rect(70, 40, 110, 75))
	fillRect(img, image.Rect(60, 5, 62, 7)) // below MinArea

	list, err := NewBlobs(Options{}).Detect(context.Background(), frameOf(img))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 blobs, got %d: %v", len(list), list)
	}

	want := []detection.Box{
		{X1: 10, Y1: 10, X2: 40, Y2: 30},
		{X1: 70, Y1: 40, X2: 110, Y2: 75},
	}
	for i, d := range list {
		if d.Label() != "object" {
			t.Errorf("blob %d label: got %s", i, d.Label())
		}
		if d.Box() != want[i] {
			t.Errorf("blob %d box: got %v, want %v", i, d.Box(), want[i])
		}
		if d.Confidence() != 1 {
			t.Errorf("blob %d: solid rectangle should fill its box, got %v", i, d.Confidence())
		}
	}
}

func TestBlobs_FillRatio(t *testing.T) {
	img := solidImage(60, 60, color.White)
	// An L shape: half of its 20x20 box.
	fillRect(img, image.Rect(10, 10, 20, 30))
	fillRect(img, image.Rect(20, 20, 30, 30))

	list, err := NewBlobs(Options{}).Detect(context.Background(), frameOf(img))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 blob, got %d", len(list))
	}
	if got := list[0].Confidence(); got != 0.75 {
		t.Errorf("fill ratio: got %v, want 0.75", got)
	}
}

func TestBlobs_Threshold(t *testing.T) {
	img := solidImage(50, 50, color.White)
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			img.Set(x, y, color.Gray{Y: 150})
		}
	}

	dark, _ := NewBlobs(Options{}).Detect(context.Background(), frameOf(img))
	if len(dark) != 0 {
		t.Errorf("mid-gray square found at default threshold: %v", dark)
	}

	light, _ := NewBlobs(Options{Threshold: 200}).Detect(context.Background(), frameOf(img))
	if len(light) != 1 {
		t.Errorf("mid-gray square not found at threshold 200: %v", light)
	}
}

func TestBlobs_Blur(t *testing.T) {
	img := solidImage(60, 60, color.White)
	fillRect(img, image.Rect(20, 20, 40, 40))

	list, err := NewBlobs(Options{Blur: 2}).Detect(context.Background(), frameOf(img))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	want := detection.Box{X1: 20, Y1: 20, X2: 40, Y2: 40}
	best := 0.0
	for _, d := range list {
		if iou := detection.IoU(d.Box(), want); iou > best {
			best = iou
		}
	}
	if best < 0.7 {
		t.Errorf("no blurred blob near %v: %v", want, list)
	}
}
