package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrMalformedBox is returned for boxes with non-finite or inverted coordinates.
	ErrMalformedBox = errors.New("malformed box")

	// ErrConfidenceRange is returned for confidences outside [0, 1].
	ErrConfidenceRange = errors.New("confidence out of range")
)

// Box is an axis-aligned bounding box in pixel coordinates.
//
// The zero value is a degenerate box at the origin.
type Box struct {
	X1 float64 // Left edge
	Y1 float64 // Top edge
	X2 float64 // Right edge
	Y2 float64 // Bottom edge
}

// NewBox validates the coordinates and returns the box.
func NewBox(x1, y1, x2, y2 float64) (Box, error) {
	b := Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
	if err := b.Validate(); err != nil {
		return Box{}, err
	}
	return b, nil
}

// Validate reports whether the box has finite, ordered coordinates.
func (b Box) Validate() error {
	for _, v := range [...]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate in %v", ErrMalformedBox, b)
		}
	}
	if b.X1 > b.X2 || b.Y1 > b.Y2 {
		return fmt.Errorf("%w: %v has x1>x2 or y1>y2", ErrMalformedBox, b)
	}
	return nil
}

// Width returns X2 - X1.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns Y2 - Y1.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the box area, or 0 for inverted boxes.
func (b Box) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Degenerate reports whether the box encloses no area.
func (b Box) Degenerate() bool {
	return b.Area() <= 0
}

// Translate shifts the box by (dx, dy).
func (b Box) Translate(dx, dy float64) Box {
	return Box{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// Truncate drops the fractional part of every coordinate.
func (b Box) Truncate() Box {
	return Box{
		X1: math.Trunc(b.X1),
		Y1: math.Trunc(b.Y1),
		X2: math.Trunc(b.X2),
		Y2: math.Trunc(b.Y2),
	}
}

// Rect converts the box to an integer image.Rectangle, truncating coordinates.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// BoxFromRect converts an image.Rectangle into a Box.
func BoxFromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{
		X1: float64(r.Min.X),
		Y1: float64(r.Min.Y),
		X2: float64(r.Max.X),
		Y2: float64(r.Max.Y),
	}
}

// MeanBox returns the coordinate-wise mean of two boxes.
func MeanBox(a, b Box) Box {
	return Box{
		X1: (a.X1 + b.X1) / 2,
		Y1: (a.Y1 + b.Y1) / 2,
		X2: (a.X2 + b.X2) / 2,
		Y2: (a.Y2 + b.Y2) / 2,
	}
}

func (b Box) String() string {
	return fmt.Sprintf("[%g,%g,%g,%g]", b.X1, b.Y1, b.X2, b.Y2)
}

// MarshalJSON encodes the box as [x1, y1, x2, y2].
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a [x1, y1, x2, y2] array and validates it.
func (b *Box) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBox, err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("%w: want 4 coordinates, got %d", ErrMalformedBox, len(coords))
	}
	box, err := NewBox(coords[0], coords[1], coords[2], coords[3])
	if err != nil {
		return err
	}
	*b = box
	return nil
}
