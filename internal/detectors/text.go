package detectors

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/detection"
	"github.com/ironsheep/hybrid-detect/internal/imaging"
)

// textWindows are the sliding window sizes, roughly small to large type.
var textWindows = []image.Point{
	{80, 25},
	{100, 30},
	{150, 40},
	{200, 50},
}

// Text finds regions that look like printed text: moderate edge density with
// mostly horizontal structure. Overlapping windows are merged and labelled
// "text".
type Text struct {
	name          string
	minConfidence float64
}

// NewText returns a text-region detector.
func NewText(opts Options) *Text {
	t := &Text{
		name:          nameOr(opts.Name, "text"),
		minConfidence: opts.MinConfidence,
	}
	if t.minConfidence <= 0 {
		t.minConfidence = DefaultMinConfidence
	}
	return t
}

func (t *Text) Name() string { return t.name }

type textRegion struct {
	r          image.Rectangle
	confidence float64
}

func (t *Text) Detect(ctx context.Context, frame capture.Frame) (detection.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	edges := gradientEdges(imaging.Luminance(frame.Image))
	height := len(edges)
	width := 0
	if height > 0 {
		width = len(edges[0])
	}

	candidates := make([]textRegion, 0)
	for _, ws := range textWindows {
		stepX, stepY := ws.X/2, ws.Y/2
		for y := 0; y+ws.Y <= height; y += stepY {
			for x := 0; x+ws.X <= width; x += stepX {
				count := 0
				for wy := y; wy < y+ws.Y; wy++ {
					for wx := x; wx < x+ws.X; wx++ {
						if edges[wy][wx] {
							count++
						}
					}
				}

				// Text sits between sparse background and dense texture.
				density := float64(count) / float64(ws.X*ws.Y)
				if density < 0.05 || density > 0.4 {
					continue
				}

				conf := horizontalScore(edges, x, y, ws.X, ws.Y) * (1.0 - math.Abs(density-0.2)/0.2)
				if conf < t.minConfidence {
					continue
				}
				candidates = append(candidates, textRegion{
					r:          image.Rect(x, y, x+ws.X, y+ws.Y),
					confidence: math.Round(conf*1000) / 1000,
				})
			}
		}
	}

	merged := mergeRegions(candidates)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].confidence > merged[j].confidence
	})

	origin := frame.Image.Bounds().Min
	out := make(detection.List, 0, len(merged))
	for _, m := range merged {
		out = append(out, detection.MustNew("text", m.confidence, detection.BoxFromRect(m.r.Add(origin))))
	}
	return out, nil
}

// horizontalScore is the share of edge runs that are horizontal within the
// window.
func horizontalScore(edges [][]bool, x, y, w, h int) float64 {
	horizontal, vertical := 0, 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row][col] && !inRun {
				horizontal++
			}
			inRun = edges[row][col]
		}
	}
	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row][col] && !inRun {
				vertical++
			}
			inRun = edges[row][col]
		}
	}

	if horizontal+vertical == 0 {
		return 0
	}
	return float64(horizontal) / float64(horizontal+vertical)
}

// mergeRegions folds each region into the first earlier one it overlaps,
// keeping the union box and the higher confidence.
func mergeRegions(regions []textRegion) []textRegion {
	merged := make([]textRegion, 0, len(regions))
	for _, r := range regions {
		folded := false
		for i := range merged {
			if r.r.Overlaps(merged[i].r) {
				merged[i].r = merged[i].r.Union(r.r)
				merged[i].confidence = math.Max(merged[i].confidence, r.confidence)
				folded = true
				break
			}
		}
		if !folded {
			merged = append(merged, r)
		}
	}
	return merged
}
