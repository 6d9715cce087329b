package imaging

import (
	"image/color"
	"testing"

	"github.com/ironsheep/hybrid-detect/internal/detection"
)

func TestLabelColor_Stable(t *testing.T) {
	if LabelColor("car") != LabelColor("car") {
		t.Error("same label produced different colours")
	}
	if LabelColor("car") == LabelColor("person") {
		t.Error("car and person share a colour")
	}
}

func TestAnnotate(t *testing.T) {
	img := solidImage(120, 80, color.White)
	list := detection.List{
		detection.MustNew("car", 0.9, detection.Box{X1: 20, Y1: 30, X2: 80, Y2: 70}),
		detection.MustNew("person", 0.4, detection.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}),
	}

	out := Annotate(img, list, AnnotateOptions{Title: "hybrid"})

	if b := out.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Fatalf("bounds: got %v, want 120x80", b)
	}

	// The bottom edge of the car box is drawn in the car colour.
	want := color.RGBAModel.Convert(LabelColor("car")).(color.RGBA)
	got := color.RGBAModel.Convert(out.At(50, 70)).(color.RGBA)
	if absDiff(got.R, want.R) > 40 || absDiff(got.G, want.G) > 40 || absDiff(got.B, want.B) > 40 {
		t.Errorf("box edge colour: got %v, want about %v", got, want)
	}

	// The source image is untouched.
	if r, g, b, _ := img.At(50, 70).RGBA(); r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Error("Annotate modified its input")
	}

	// Box interior away from captions stays white.
	if r, _, _, _ := out.At(60, 55).RGBA(); r>>8 != 255 {
		t.Errorf("box interior changed: r=%d", r>>8)
	}
}

func TestAnnotate_Empty(t *testing.T) {
	img := solidImage(10, 10, color.Black)
	out := Annotate(img, nil, AnnotateOptions{})
	if r, _, _, _ := out.At(5, 5).RGBA(); r != 0 {
		t.Error("empty annotation changed pixels")
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
