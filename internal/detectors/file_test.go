package detectors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/multierr"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/detection"
)

func TestFile_Detect(t *testing.T) {
	dir := t.TempDir()
	content := `[
		{"label": "car", "confidence": 0.9, "box": [0, 0, 10, 10]},
		{"label": "person", "confidence": 0.6, "box": [20, 20, 30, 40]}
	]`
	if err := os.WriteFile(filepath.Join(dir, "street.yolo.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := NewFile(Options{Name: "yolo", Dir: dir})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	list, err := d.Detect(context.Background(), capture.Frame{Name: "street.png"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(list))
	}
	if list[1].Label() != "person" || list[1].Box() != (detection.Box{X1: 20, Y1: 20, X2: 30, Y2: 40}) {
		t.Errorf("second detection: got %v", list[1])
	}
}

func TestFile_MissingMeansEmpty(t *testing.T) {
	d, err := NewFile(Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	list, err := d.Detect(context.Background(), capture.Frame{Name: "nothing.png"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty list, got %#v", list)
	}
}

func TestFile_InvalidRecords(t *testing.T) {
	dir := t.TempDir()
	content := `[
		{"label": "car", "confidence": 1.5, "box": [0, 0, 10, 10]},
		{"label": "car", "confidence": 0.5, "box": [10, 10, 0, 0]},
		{"label": "car", "confidence": 0.5, "box": [0, 0, 10, 10]}
	]`
	path := filepath.Join(dir, "f.file.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := ReadFile(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(list) != 1 {
		t.Errorf("valid records: got %d, want 1", len(list))
	}
	if n := len(multierr.Errors(errors.Unwrap(err))); n != 2 {
		t.Errorf("expected 2 record errors, got %d: %v", n, err)
	}
	if !errors.Is(err, detection.ErrConfidenceRange) || !errors.Is(err, detection.ErrMalformedBox) {
		t.Errorf("sentinel errors not reachable from %v", err)
	}

	logger, hook := test.NewNullLogger()
	d, err := NewFile(Options{Dir: dir, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	got, err := d.Detect(context.Background(), capture.Frame{Name: "f.png"})
	if err != nil {
		t.Fatalf("Detect should skip invalid records, got %v", err)
	}
	if len(got) != 1 || len(hook.Entries) != 1 {
		t.Errorf("got %d detections and %d warnings, want 1 and 1", len(got), len(hook.Entries))
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if list, err := ReadFile(path); err == nil || list != nil {
		t.Error("expected parse error and no list")
	}
	if _, err := d.Detect(context.Background(), capture.Frame{Name: "f.png"}); err == nil {
		t.Error("Detect should fail on an unparseable file")
	}
}

func TestReadFile_NonNumericCoordinate(t *testing.T) {
	dir := t.TempDir()
	content := `[
		{"label": "car", "confidence": 0.9, "box": [0, 0, 10, 10]},
		{"label": "sign", "confidence": 0.8, "box": ["a", 0, 5, 5]},
		{"label": "person", "confidence": 0.7, "box": [20, 20, 30, 40]}
	]`
	path := filepath.Join(dir, "f.file.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := ReadFile(path)
	if !errors.Is(err, detection.ErrMalformedBox) {
		t.Errorf("expected ErrMalformedBox, got %v", err)
	}
	if len(list) != 2 || list[0].Label() != "car" || list[1].Label() != "person" {
		t.Fatalf("expected car and person to survive, got %v", list)
	}

	logger, hook := test.NewNullLogger()
	d, err := NewFile(Options{Dir: dir, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	got, err := d.Detect(context.Background(), capture.Frame{Name: "f.png"})
	if err != nil {
		t.Fatalf("Detect should keep the frame, got %v", err)
	}
	if len(got) != 2 || len(hook.Entries) != 1 {
		t.Errorf("got %d detections and %d warnings, want 2 and 1", len(got), len(hook.Entries))
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	in := detection.List{
		detection.MustNew("car", 0.85, detection.Box{X1: 0.5, Y1: 0.5, X2: 10.5, Y2: 10.5}),
	}
	if err := WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	out, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(out) != 1 || !out[0].Equal(in[0]) {
		t.Errorf("got %v, want %v", out, in)
	}
}
