package detectors

import (
	"context"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/detection"
	"github.com/ironsheep/hybrid-detect/internal/ocr"
)

// OCR reports every word Tesseract recognises, labelled with the word.
type OCR struct {
	name     string
	language string
}

// NewOCR returns a Tesseract word detector.
func NewOCR(opts Options) *OCR {
	return &OCR{
		name:     nameOr(opts.Name, "ocr"),
		language: nameOr(opts.Language, ocr.DefaultLanguage),
	}
}

func (o *OCR) Name() string { return o.name }

func (o *OCR) Detect(ctx context.Context, frame capture.Frame) (detection.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := ocr.Recognize(frame.Image, o.language)
	if err != nil {
		return nil, err
	}
	return result.Detections(), nil
}
