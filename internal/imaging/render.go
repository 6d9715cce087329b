package imaging

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"sort"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ironsheep/hybrid-detect/internal/detection"
)

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// LabelColor returns a stable, saturated colour for label. The same label
// always gets the same colour across frames and views.
func LabelColor(label string) color.Color {
	h := fnv.New32a()
	h.Write([]byte(label))
	hue := float64(h.Sum32() % 360)
	return colorful.Hsv(hue, 0.8, 0.95).Clamped()
}

// AnnotateOptions controls box and caption drawing.
type AnnotateOptions struct {
	LineWidth float64 // Box outline width, default 2
	FontSize  float64 // Caption size in points, default 12
	Title     string  // Optional caption drawn in the top-left corner
}

// Annotate returns a copy of img with every detection drawn as an outlined
// box captioned "label 0.85". img is not modified.
func Annotate(img image.Image, list detection.List, opts AnnotateOptions) image.Image {
	if opts.LineWidth <= 0 {
		opts.LineWidth = 2
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 12
	}

	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	dc.SetFontFace(truetype.NewFace(labelFont, &truetype.Options{Size: opts.FontSize}))

	// Draw weakest first so the strongest caption ends up on top.
	ordered := append(detection.List(nil), list...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence() < ordered[j].Confidence()
	})

	for _, d := range ordered {
		box := d.Box()
		c := LabelColor(d.Label())

		dc.SetColor(c)
		dc.SetLineWidth(opts.LineWidth)
		dc.DrawRectangle(box.X1, box.Y1, box.Width(), box.Height())
		dc.Stroke()

		caption := fmt.Sprintf("%s %.2f", d.Label(), d.Confidence())
		drawCaption(dc, caption, box.X1, box.Y1, c)
	}

	if opts.Title != "" {
		drawCaption(dc, opts.Title, 0, 0, color.White)
	}

	return dc.Image()
}

// drawCaption draws text on a dark backing strip whose bottom-left corner is
// at (x, y), moving it inside the image when it would fall off the top.
func drawCaption(dc *gg.Context, text string, x, y float64, fg color.Color) {
	w, h := dc.MeasureString(text)
	pad := 2.0
	top := y - h - 2*pad
	if top < 0 {
		top = y
	}

	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRectangle(x, top, w+2*pad, h+2*pad)
	dc.Fill()

	dc.SetColor(fg)
	dc.DrawStringAnchored(text, x+pad, top+pad, 0, 1)
}
