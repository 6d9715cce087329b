package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// Default Canny thresholds on the 0-255 gradient scale.
const (
	DefaultEdgeLow  = 50
	DefaultEdgeHigh = 150
)

// edgeBlurRadius is the Gaussian radius applied before taking gradients.
const edgeBlurRadius = 1.4

// Luminance converts img to a row-major [y][x] grid of luminance in [0,1].
// The grid is indexed from (0,0) whatever img.Bounds().Min is.
func Luminance(img image.Image) [][]float64 {
	gray := effect.Grayscale(img)
	return grayGrid(gray)
}

func grayGrid(img image.Image) [][]float64 {
	b := img.Bounds()
	out := make([][]float64, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		out[y] = make([]float64, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			out[y][x] = float64(g.Y) / 255.0
		}
	}
	return out
}

// EdgeMap runs Canny edge detection and returns a binary map, 255 on edges and
// 0 elsewhere, with the same size as img and origin (0,0).
//
// thresholdLow and thresholdHigh are on a 0-255 scale. Gradients above
// thresholdHigh are always edges; those between the two thresholds are kept
// only next to a strong edge.
func EdgeMap(img image.Image, thresholdLow, thresholdHigh int) *image.Gray {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	result := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return result
	}

	blurred := grayGrid(blur.Gaussian(effect.Grayscale(img), edgeBlurRadius))

	magnitude := make([][]float64, height)
	direction := make([][]float64, height)

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := blurred[clamp(y+ky, 0, height-1)][clamp(x+kx, 0, width-1)]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Thin edges to one pixel by keeping local maxima along the gradient.
	thin := make([][]float64, height)
	for y := 0; y < height; y++ {
		thin[y] = make([]float64, width)
		if y == 0 || y == height-1 {
			continue
		}
		for x := 1; x < width-1; x++ {
			n1, n2 := gradientNeighbors(magnitude, direction[y][x], x, y)
			if m := magnitude[y][x]; m >= n1 && m >= n2 {
				thin[y][x] = m
			}
		}
	}

	low := float64(thresholdLow) / 255.0
	high := float64(thresholdHigh) / 255.0

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := thin[y][x]
			switch {
			case v >= high:
				result.SetGray(x, y, color.Gray{255})
			case v >= low && hasStrongNeighbor(thin, x, y, high):
				result.SetGray(x, y, color.Gray{255})
			}
		}
	}
	return result
}

// gradientNeighbors returns the two magnitudes on either side of (x,y) along
// the gradient direction, quantised to 45 degrees.
func gradientNeighbors(mag [][]float64, angle float64, x, y int) (float64, float64) {
	switch {
	case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
		return mag[y][x-1], mag[y][x+1]
	case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
		return mag[y-1][x+1], mag[y+1][x-1]
	case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
		return mag[y-1][x], mag[y+1][x]
	default:
		return mag[y-1][x-1], mag[y+1][x+1]
	}
}

func hasStrongNeighbor(thin [][]float64, x, y int, high float64) bool {
	height, width := len(thin), len(thin[0])
	for ky := -1; ky <= 1; ky++ {
		for kx := -1; kx <= 1; kx++ {
			if thin[clamp(y+ky, 0, height-1)][clamp(x+kx, 0, width-1)] >= high {
				return true
			}
		}
	}
	return false
}

// EdgeDetect runs EdgeMap and encodes the result for a tool response.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh int) (*EncodedImage, error) {
	return EncodePNGBase64(EdgeMap(img, thresholdLow, thresholdHigh))
}

// clamp constrains val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
