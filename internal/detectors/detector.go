package detectors

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/detection"
)

// Detector finds objects in one frame.
type Detector interface {
	// Name identifies the detector in logs and file names.
	Name() string

	Detect(ctx context.Context, frame capture.Frame) (detection.List, error)
}

// Func adapts a function to the Detector interface.
type Func struct {
	ID string
	Fn func(ctx context.Context, frame capture.Frame) (detection.List, error)
}

func (f Func) Name() string { return f.ID }

func (f Func) Detect(ctx context.Context, frame capture.Frame) (detection.List, error) {
	return f.Fn(ctx, frame)
}

// Options configures the detectors built by New. Each kind reads only the
// fields it needs; zero values select the defaults below.
type Options struct {
	// Name overrides the detector name. The file detector uses it as the
	// middle part of "<frame>.<name>.json".
	Name string

	// MinArea drops shapes and blobs with a smaller bounding box (px²).
	MinArea int

	// Tolerance is the minimum rectangularity for shapes, in [0,1].
	Tolerance float64

	// MinRadius and MaxRadius bound Hough circle search. Circles are skipped
	// when MaxRadius is 0.
	MinRadius int
	MaxRadius int

	// Threshold is the blob luminance cut-off on a 0-255 scale.
	Threshold float64

	// Blur is the Gaussian radius applied before blob thresholding.
	Blur float64

	// MinConfidence drops text windows scoring lower.
	MinConfidence float64

	// Language is the Tesseract language for the ocr detector.
	Language string

	// Dir holds the JSON files for the file detector.
	Dir string

	// Logger receives warnings about skipped input, such as invalid records
	// in a detection file.
	Logger logrus.FieldLogger
}

// Defaults applied by New.
const (
	DefaultMinArea       = 100
	DefaultTolerance     = 0.8
	DefaultThreshold     = 100
	DefaultMinConfidence = 0.3
)

type factory func(Options) (Detector, error)

var registry = map[string]factory{
	"shapes": func(o Options) (Detector, error) { return NewShapes(o), nil },
	"blobs":  func(o Options) (Detector, error) { return NewBlobs(o), nil },
	"text":   func(o Options) (Detector, error) { return NewText(o), nil },
	"ocr":    func(o Options) (Detector, error) { return NewOCR(o), nil },
	"file":   func(o Options) (Detector, error) { return NewFile(o) },
}

// Kinds lists the detector names New accepts.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New builds the detector of the given kind.
//
// Parameters:
//   - kind: One of Kinds(): "blobs", "file", "ocr", "shapes" or "text".
//   - opts: Settings for the detector. Each kind reads only the fields it
//     needs; zero values select the package defaults.
//
// Returns:
//   - Detector: Ready to use and safe to call from one goroutine at a time.
//   - error: Non-nil for an unknown kind, or when the kind rejects opts (the
//     file detector requires Dir).
func New(kind string, opts Options) (Detector, error) {
	f, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown detector %q (want one of %v)", kind, Kinds())
	}
	return f(opts)
}

// MinScore wraps d so that detections scoring below score are dropped.
// A score of 0 or less returns d unchanged.
func MinScore(d Detector, score float64) Detector {
	if score <= 0 {
		return d
	}
	return &scoreFilter{Detector: d, min: score}
}

type scoreFilter struct {
	Detector
	min float64
}

func (s *scoreFilter) Detect(ctx context.Context, frame capture.Frame) (detection.List, error) {
	list, err := s.Detector.Detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	return list.Filter(func(d detection.Detection) bool {
		return d.Confidence() >= s.min
	}), nil
}

func nameOr(name, def string) string {
	if name != "" {
		return name
	}
	return def
}
