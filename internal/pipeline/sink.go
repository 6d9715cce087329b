package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/detection"
	"github.com/ironsheep/hybrid-detect/internal/imaging"
	"github.com/ironsheep/hybrid-detect/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink receives one result per processed frame.
type Sink interface {
	Write(ctx context.Context, frame capture.Frame, res *FrameResult) error
	Close() error
}

// LogSink logs a one-line summary of each frame.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Write(_ context.Context, _ capture.Frame, res *FrameResult) error {
	logger := s.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger.WithFields(logging.Fields{
		"frame_id":   res.ID.String(),
		"frame":      res.Name,
		"primary":    len(res.Primary),
		"secondary":  len(res.Secondary),
		"merged":     len(res.Merged),
		"matched":    res.Matched,
		"suppressed": res.Suppressed,
	}).Infof("frame processed in %v", res.Elapsed)
	return nil
}

func (LogSink) Close() error { return nil }

// JSONSink writes each result as one JSON object per line.
type JSONSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewJSONSink writes to w. When w is an io.Closer, Close closes it.
func NewJSONSink(w io.Writer) *JSONSink {
	s := &JSONSink{w: w}
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		s.closer = c
	}
	return s
}

func (s *JSONSink) Write(_ context.Context, _ capture.Frame, res *FrameResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode frame %s: %w", res.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(data, '\n'))
	return err
}

func (s *JSONSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// FileSink saves three annotated PNGs per frame into Dir:
// <stem>.primary.png, <stem>.secondary.png and <stem>.hybrid.png.
type FileSink struct {
	Dir     string
	Options imaging.AnnotateOptions
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

// Paths returns the files Write produces for frame.
func (s *FileSink) Paths(frame capture.Frame) []string {
	stem := frame.Stem()
	return []string{
		filepath.Join(s.Dir, stem+".primary.png"),
		filepath.Join(s.Dir, stem+".secondary.png"),
		filepath.Join(s.Dir, stem+".hybrid.png"),
	}
}

func (s *FileSink) Write(ctx context.Context, frame capture.Frame, res *FrameResult) error {
	views := []struct {
		title string
		list  detection.List
	}{
		{"primary", res.Primary},
		{"secondary", res.Secondary},
		{"hybrid", res.Merged},
	}

	for i, path := range s.Paths(frame) {
		if err := ctx.Err(); err != nil {
			return err
		}
		opts := s.Options
		opts.Title = fmt.Sprintf("%s (%d)", views[i].title, len(views[i].list))
		if err := imaging.Save(path, imaging.Annotate(frame.Image, views[i].list, opts)); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSink) Close() error { return nil }

// MultiSink fans each result out to several sinks. Every sink sees every
// result; their errors are combined.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, frame capture.Frame, res *FrameResult) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Write(ctx, frame, res))
	}
	return err
}

func (m MultiSink) Close() error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Close())
	}
	return err
}
