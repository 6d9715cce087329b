package detectors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/detection"
	"github.com/ironsheep/hybrid-detect/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// File replays detections produced elsewhere. For a frame named
// "street.png" and a detector named "yolo" it reads
// "<dir>/street.yolo.json", a JSON array of {label, confidence, box}. A
// missing file means the model found nothing in that frame. Invalid records
// are logged and skipped.
type File struct {
	name   string
	dir    string
	logger logrus.FieldLogger
}

// NewFile returns a file detector. opts.Dir is required.
func NewFile(opts Options) (*File, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("file detector needs a detections directory")
	}
	f := &File{name: nameOr(opts.Name, "file"), dir: opts.Dir, logger: opts.Logger}
	if f.logger == nil {
		f.logger = logging.Discard()
	}
	return f, nil
}

func (f *File) Name() string { return f.name }

// Path returns the JSON file consulted for frame.
func (f *File) Path(frame capture.Frame) string {
	return filepath.Join(f.dir, frame.Stem()+"."+f.name+".json")
}

func (f *File) Detect(ctx context.Context, frame capture.Frame) (detection.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list, err := ReadFile(f.Path(frame))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return detection.List{}, nil
	case err != nil && list != nil:
		f.logger.WithField("frame", frame.Name).Warn(err)
		return list, nil
	}
	return list, err
}

// ReadFile decodes a JSON array of detection records.
//
// Each element is decoded and validated on its own, so a record with a
// non-numeric coordinate or a missing field is rejected without losing its
// neighbours.
//
// Returns:
//   - the valid detections, in file order
//   - an error naming every rejected record, alongside the valid list
//
// The list is nil only when the file cannot be read or is not a JSON array.
func ReadFile(path string) (detection.List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	list := make(detection.List, 0, len(raw))
	var errs error
	for i, elem := range raw {
		var r detection.Record
		if err := json.Unmarshal(elem, &r); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("record %d: %w: %v", i, detection.ErrMalformedBox, err))
			continue
		}
		d, err := r.Detection()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		list = append(list, d)
	}

	if errs != nil {
		return list, fmt.Errorf("invalid detections in %s: %w", filepath.Base(path), errs)
	}
	return list, nil
}

// WriteFile writes list as a JSON array of detection records.
func WriteFile(path string, list detection.List) error {
	data, err := json.MarshalIndent(list.Records(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
