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

// Shapes finds axis-aligned rectangles from edge contours and, when a radius
// range is set, circles by Hough voting.
//
// Rectangles are labelled "rectangle" with confidence equal to how closely the
// contour length matches the bounding-box perimeter. Circles are labelled
// "circle" with confidence equal to the fraction of the circumference that
// voted for the centre.
type Shapes struct {
	name      string
	minArea   int
	tolerance float64
	minRadius int
	maxRadius int
}

// NewShapes returns a shape detector.
func NewShapes(opts Options) *Shapes {
	s := &Shapes{
		name:      nameOr(opts.Name, "shapes"),
		minArea:   opts.MinArea,
		tolerance: opts.Tolerance,
		minRadius: opts.MinRadius,
		maxRadius: opts.MaxRadius,
	}
	if s.minArea <= 0 {
		s.minArea = DefaultMinArea
	}
	if s.tolerance <= 0 {
		s.tolerance = DefaultTolerance
	}
	if s.minRadius <= 0 {
		s.minRadius = 5
	}
	return s
}

func (s *Shapes) Name() string { return s.name }

func (s *Shapes) Detect(ctx context.Context, frame capture.Frame) (detection.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := frame.Image
	edges := gradientEdges(imaging.Luminance(img))

	out := s.rectangles(edges, img.Bounds().Min)
	if s.maxRadius > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, s.circles(edges, img.Bounds().Min)...)
	}
	return out, nil
}

func (s *Shapes) rectangles(edges [][]bool, origin image.Point) detection.List {
	out := make(detection.List, 0)
	for _, contour := range findContours(edges) {
		r := contourBounds(contour)
		w, h := r.Dx(), r.Dy()
		if w*h < s.minArea {
			continue
		}

		perimeter := 2 * (w + h)
		rectangularity := 1.0 - math.Abs(float64(len(contour)-perimeter))/float64(perimeter)
		if rectangularity < s.tolerance {
			continue
		}

		box := detection.BoxFromRect(r.Add(origin))
		out = append(out, detection.MustNew("rectangle", rectangularity, box))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Box().Area() > out[j].Box().Area()
	})
	return out
}

type circle struct {
	cx, cy, r  int
	confidence float64
}

func (s *Shapes) circles(edges [][]bool, origin image.Point) detection.List {
	height := len(edges)
	if height == 0 {
		return detection.List{}
	}
	width := len(edges[0])

	found := make([]circle, 0)
	for radius := s.minRadius; radius <= s.maxRadius; radius++ {
		acc := make([][]int, height)
		for y := range acc {
			acc[y] = make([]int, width)
		}

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if !edges[y][x] {
					continue
				}
				for angle := 0; angle < 360; angle += 10 {
					rad := float64(angle) * math.Pi / 180
					cx := x - int(float64(radius)*math.Cos(rad))
					cy := y - int(float64(radius)*math.Sin(rad))
					if cx >= 0 && cx < width && cy >= 0 && cy < height {
						acc[cy][cx]++
					}
				}
			}
		}

		// Require votes from about 60% of the circumference.
		threshold := int(float64(2*radius) * 0.6)
		for y := radius; y < height-radius; y++ {
			for x := radius; x < width-radius; x++ {
				if acc[y][x] < threshold || !localMax(acc, x, y, 5) {
					continue
				}
				conf := math.Min(float64(acc[y][x])/float64(2*radius), 1.0)
				found = append(found, circle{cx: x, cy: y, r: radius, confidence: conf})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].confidence > found[j].confidence
	})

	out := make(detection.List, 0)
	kept := make([]circle, 0)
	for _, c := range found {
		if duplicateCircle(c, kept) {
			continue
		}
		kept = append(kept, c)
		r := image.Rect(c.cx-c.r, c.cy-c.r, c.cx+c.r+1, c.cy+c.r+1).Add(origin)
		out = append(out, detection.MustNew("circle", c.confidence, detection.BoxFromRect(r)))
	}
	return out
}

func localMax(acc [][]int, x, y, win int) bool {
	for dy := -win; dy <= win; dy++ {
		for dx := -win; dx <= win; dx++ {
			ny, nx := y+dy, x+dx
			if ny < 0 || ny >= len(acc) || nx < 0 || nx >= len(acc[0]) {
				continue
			}
			if acc[ny][nx] > acc[y][x] {
				return false
			}
		}
	}
	return true
}

// duplicateCircle reports whether c's centre lies within the mean radius of a
// circle already kept.
func duplicateCircle(c circle, kept []circle) bool {
	for _, k := range kept {
		dx, dy := float64(c.cx-k.cx), float64(c.cy-k.cy)
		if math.Sqrt(dx*dx+dy*dy) < float64(c.r+k.r)/2 {
			return true
		}
	}
	return false
}

// gradientEdges marks pixels whose luminance differs from the right or lower
// neighbour by more than 30/255. Border pixels are never edges.
func gradientEdges(lum [][]float64) [][]bool {
	const threshold = 30.0 / 255.0

	height := len(lum)
	edges := make([][]bool, height)
	for y := 0; y < height; y++ {
		width := len(lum[y])
		edges[y] = make([]bool, width)
		if y == 0 || y == height-1 {
			continue
		}
		for x := 1; x < width-1; x++ {
			c := lum[y][x]
			if math.Abs(c-lum[y][x+1]) > threshold || math.Abs(c-lum[y+1][x]) > threshold {
				edges[y][x] = true
			}
		}
	}
	return edges
}

// findContours groups 8-connected edge pixels. Groups under 10 pixels are
// treated as noise.
func findContours(edges [][]bool) [][]image.Point {
	height := len(edges)
	if height == 0 {
		return nil
	}
	width := len(edges[0])

	visited := make([][]bool, height)
	for y := range visited {
		visited[y] = make([]bool, width)
	}

	contours := make([][]image.Point, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !edges[y][x] || visited[y][x] {
				continue
			}
			contour := floodFill(edges, visited, x, y)
			if len(contour) >= 10 {
				contours = append(contours, contour)
			}
		}
	}
	return contours
}

func floodFill(edges, visited [][]bool, startX, startY int) []image.Point {
	height, width := len(edges), len(edges[0])
	contour := make([]image.Point, 0)
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}
		visited[p.Y][p.X] = true
		contour = append(contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx != 0 || dy != 0 {
					stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
				}
			}
		}
	}
	return contour
}

// contourBounds returns the half-open bounding rectangle of the points.
func contourBounds(points []image.Point) image.Rectangle {
	r := image.Rectangle{Min: points[0], Max: points[0].Add(image.Point{1, 1})}
	for _, p := range points[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Point{1, 1})})
	}
	return r
}
