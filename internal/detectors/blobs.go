package detectors

import (
	"context"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/detection"
)

// Blobs finds 4-connected regions of pixels darker than a luminance threshold
// and reports each region's bounding box as an "object". Confidence is the
// fraction of the box the region fills.
type Blobs struct {
	name      string
	threshold uint8
	blur      float64
	minArea   int
}

// NewBlobs returns a blob detector.
func NewBlobs(opts Options) *Blobs {
	b := &Blobs{
		name:      nameOr(opts.Name, "blobs"),
		threshold: DefaultThreshold,
		blur:      opts.Blur,
		minArea:   opts.MinArea,
	}
	if opts.Threshold > 0 && opts.Threshold <= 255 {
		b.threshold = uint8(opts.Threshold)
	}
	if b.minArea <= 0 {
		b.minArea = DefaultMinArea
	}
	return b
}

func (b *Blobs) Name() string { return b.name }

func (b *Blobs) Detect(ctx context.Context, frame capture.Frame) (detection.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var gray image.Image = effect.Grayscale(frame.Image)
	if b.blur > 0 {
		gray = blur.Gaussian(gray, b.blur)
	}
	// Threshold maps pixels below the level to 0 and the rest to 255.
	mask := segment.Threshold(gray, b.threshold)

	origin := frame.Image.Bounds().Min
	out := make(detection.List, 0)
	for _, c := range components(mask) {
		if c.bounds.Dx()*c.bounds.Dy() < b.minArea {
			continue
		}
		fill := float64(c.pixels) / float64(c.bounds.Dx()*c.bounds.Dy())
		box := detection.BoxFromRect(c.bounds.Add(origin))
		out = append(out, detection.MustNew("object", fill, box))
	}
	return out, nil
}

type component struct {
	bounds image.Rectangle
	pixels int
}

// components labels the 4-connected zero-valued regions of mask with a
// breadth-first flood fill.
func components(mask *image.Gray) []component {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	dark := func(x, y int) bool { return mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y == 0 }

	seen := make([]bool, w*h)
	out := make([]component, 0)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if seen[y*w+x] || !dark(x, y) {
				continue
			}

			seen[y*w+x] = true
			queue := []image.Point{{x, y}}
			c := component{bounds: image.Rect(x, y, x+1, y+1)}

			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				c.pixels++
				c.bounds = c.bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

				for _, n := range [4]image.Point{{p.X, p.Y - 1}, {p.X, p.Y + 1}, {p.X - 1, p.Y}, {p.X + 1, p.Y}} {
					if n.X < 0 || n.X >= w || n.Y < 0 || n.Y >= h {
						continue
					}
					idx := n.Y*w + n.X
					if seen[idx] || !dark(n.X, n.Y) {
						continue
					}
					seen[idx] = true
					queue = append(queue, n)
				}
			}
			out = append(out, c)
		}
	}
	return out
}
