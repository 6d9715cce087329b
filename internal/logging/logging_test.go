package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closeFn()

	logger.WithFields(Fields{"frame": 3, "merged": 2}).Info("frame processed")
	logger.Debug("hidden")

	out := buf.String()
	for _, want := range []string{"frame processed", "frame:3", "merged:2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level: %q", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hybrid.log")
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "debug", File: path, Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level: got %v, want debug", logger.GetLevel())
	}

	logger.Warn("to both")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("log file missing entry: %q", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("stderr writer missing entry: %q", buf.String())
	}
}
