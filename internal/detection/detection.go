package detection

import (
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// Detection is one (label, confidence, box) observation for a single frame.
//
// Detection values are immutable; build them with New.
type Detection struct {
	label      string
	confidence float64
	box        Box
}

// List is an ordered sequence of detections, usually in detector output order.
type List []Detection

// New validates its arguments and returns a Detection.
//
// Errors wrap ErrConfidenceRange or ErrMalformedBox.
func New(label string, confidence float64, box Box) (Detection, error) {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Detection{}, fmt.Errorf("%w: %v for %q", ErrConfidenceRange, confidence, label)
	}
	if err := box.Validate(); err != nil {
		return Detection{}, err
	}
	return Detection{label: label, confidence: confidence, box: box}, nil
}

// MustNew is like New but panics on invalid input. Intended for fixtures.
func MustNew(label string, confidence float64, box Box) Detection {
	d, err := New(label, confidence, box)
	if err != nil {
		panic(err)
	}
	return d
}

// Label returns the category identifier.
func (d Detection) Label() string { return d.label }

// Confidence returns the detector score in [0, 1].
func (d Detection) Confidence() float64 { return d.confidence }

// Box returns the bounding box.
func (d Detection) Box() Box { return d.box }

// Translate returns a copy of d with its box shifted by (dx, dy).
func (d Detection) Translate(dx, dy float64) Detection {
	d.box = d.box.Translate(dx, dy)
	return d
}

func (d Detection) String() string {
	return fmt.Sprintf("%s (%.2f) %v", d.label, d.confidence, d.box)
}

// Equal reports whether two detections carry the same values.
func (d Detection) Equal(o Detection) bool {
	return d.label == o.label && d.confidence == o.confidence && d.box == o.box
}

// Record is the wire form of a detection:
//
//	{"label": "car", "confidence": 0.85, "box": [x1, y1, x2, y2]}
//
// Fields mirror the JSON as decoded, before validation: Confidence is nil
// when the key is absent and Box holds however many coordinates were sent.
// Use Detection or FromRecords to validate.
type Record struct {
	Label      string    `json:"label"`
	Confidence *float64  `json:"confidence"`
	Box        []float64 `json:"box"`
}

// NewRecord returns the wire form of the given values without validating them.
func NewRecord(label string, confidence float64, box Box) Record {
	return Record{
		Label:      label,
		Confidence: &confidence,
		Box:        []float64{box.X1, box.Y1, box.X2, box.Y2},
	}
}

// Record returns the wire form of d.
func (d Detection) Record() Record {
	return NewRecord(d.label, d.confidence, d.box)
}

// MarshalJSON encodes the detection as a Record.
func (d Detection) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Record())
}

// UnmarshalJSON decodes a Record and validates it.
func (d *Detection) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	det, err := r.Detection()
	if err != nil {
		return err
	}
	*d = det
	return nil
}

// Detection validates the record and returns the Detection it describes.
//
// # Errors
//
//   - ErrConfidenceRange: confidence missing, NaN or outside [0, 1]
//   - ErrMalformedBox: box missing, not exactly four coordinates, non-finite
//     or inverted
func (r Record) Detection() (Detection, error) {
	if r.Confidence == nil {
		return Detection{}, fmt.Errorf("%w: missing confidence for %q", ErrConfidenceRange, r.Label)
	}
	if len(r.Box) != 4 {
		return Detection{}, fmt.Errorf("%w: want 4 coordinates for %q, got %d", ErrMalformedBox, r.Label, len(r.Box))
	}
	box := Box{X1: r.Box[0], Y1: r.Box[1], X2: r.Box[2], Y2: r.Box[3]}
	return New(r.Label, *r.Confidence, box)
}

// FromRecords converts raw records into a List, skipping invalid entries.
//
// The returned list holds every valid record in input order. The error, when
// non-nil, combines one error per rejected record; the list is still usable.
func FromRecords(records []Record) (List, error) {
	out := make(List, 0, len(records))
	var errs error
	for i, r := range records {
		d, err := r.Detection()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, d)
	}
	return out, errs
}

// Records returns the wire form of every detection in l.
func (l List) Records() []Record {
	out := make([]Record, len(l))
	for i, d := range l {
		out[i] = d.Record()
	}
	return out
}

// Filter returns the detections for which keep returns true.
func (l List) Filter(keep func(Detection) bool) List {
	out := make(List, 0, len(l))
	for _, d := range l {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// Translate shifts every box in l by (dx, dy).
func (l List) Translate(dx, dy float64) List {
	out := make(List, len(l))
	for i, d := range l {
		out[i] = d.Translate(dx, dy)
	}
	return out
}
