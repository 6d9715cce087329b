package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/hybrid-detect/internal/detection"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Word is one recognised word and its location.
type Word struct {
	// Text is the recognised word, trimmed of surrounding whitespace.
	Text string `json:"text"`

	// Confidence is Tesseract's word confidence scaled to [0, 1].
	Confidence float64 `json:"confidence"`

	// Box is the word's bounding box in pixel coordinates.
	Box detection.Box `json:"box"`
}

// Result is the output of one OCR pass.
type Result struct {
	// FullText is the recognised text with Tesseract's line breaks.
	FullText string `json:"full_text"`

	// Words may be empty when box extraction fails even though FullText is set.
	Words []Word `json:"words"`
}

// ExtractText performs OCR on an image file.
//
// Parameters:
//   - path: Path to a PNG, JPEG or GIF image.
//   - language: Tesseract language code; empty selects DefaultLanguage.
//
// Returns:
//   - *Result: The full text and one Word per recognised word.
//   - error: Non-nil if the image cannot be read or Tesseract fails.
func ExtractText(path, language string) (*Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(path); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return recognize(client, language)
}

// Recognize performs OCR on an in-memory image.
//
// The image is PNG-encoded and handed to Tesseract from memory, so frames and
// cascade crops never touch the disk. Word boxes are in img's coordinate
// space, including any non-zero bounds origin: a crop taken with
// imaging.CropBox yields boxes relative to the crop, which the pipeline then
// translates back into frame coordinates.
//
// # Errors
//
//   - Returns error if the image cannot be encoded
//   - Returns error if the language is not installed or Tesseract fails
func Recognize(img image.Image, language string) (*Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	result, err := recognize(client, language)
	if err != nil {
		return nil, err
	}

	if origin := img.Bounds().Min; origin != (image.Point{}) {
		for i := range result.Words {
			result.Words[i].Box = result.Words[i].Box.Translate(float64(origin.X), float64(origin.Y))
		}
	}
	return result, nil
}

func recognize(client *gosseract.Client, language string) (*Result, error) {
	if language == "" {
		language = DefaultLanguage
	}
	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// The text is still useful without word boxes.
		return &Result{FullText: text, Words: []Word{}}, nil
	}

	return &Result{FullText: text, Words: wordsFromBoxes(boxes)}, nil
}

// wordsFromBoxes converts Tesseract word boxes, skipping blank words and
// clamping confidence into [0, 1].
func wordsFromBoxes(boxes []gosseract.BoundingBox) []Word {
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		conf := b.Confidence / 100.0
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		words = append(words, Word{
			Text:       text,
			Confidence: conf,
			Box:        detection.BoxFromRect(b.Box),
		})
	}
	return words
}

// Detections converts words to detections labelled with the word text.
// Words with an empty box are kept; they never match or suppress anything.
func (r *Result) Detections() detection.List {
	out := make(detection.List, 0, len(r.Words))
	for _, w := range r.Words {
		d, err := detection.New(w.Text, w.Confidence, w.Box)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}
