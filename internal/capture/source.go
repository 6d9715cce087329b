package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/ironsheep/hybrid-detect/internal/imaging"
)

// Source kinds accepted by Open.
const (
	KindImage  = "image"
	KindDir    = "dir"
	KindFFmpeg = "ffmpeg"
)

// Frame is one image from a source.
type Frame struct {
	// Index counts frames from 0 in source order, including failed ones.
	Index int

	// Name identifies the frame: the file name for file sources, a
	// zero-padded counter for ffmpeg.
	Name string

	Image image.Image
}

// Stem returns Name without its extension.
func (f Frame) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Source yields frames in order.
type Source interface {
	// Next returns the next frame, io.EOF after the last one, or a *FrameError
	// for a frame that could not be read. The source stays usable after a
	// *FrameError.
	Next(ctx context.Context) (Frame, error)

	Close() error
}

// FrameError reports a single unreadable frame.
type FrameError struct {
	Index int
	Name  string
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// Spec selects and configures a source.
type Spec struct {
	// Kind is one of KindImage, KindDir or KindFFmpeg. When empty it is
	// inferred from Path.
	Kind string

	Path string

	// Width, when positive, downscales wider frames to this width.
	Width int

	// FPS limits the ffmpeg frame rate; 0 keeps the input rate.
	FPS float64

	// InputArgs are extra ffmpeg input options, e.g. {"f": "v4l2"}.
	InputArgs map[string]interface{}
}

// InferKind guesses the source kind for path.
func InferKind(path string) string {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return KindDir
	}
	if imaging.IsImageFile(path) {
		return KindImage
	}
	return KindFFmpeg
}

// Open builds the source described by spec.
func Open(ctx context.Context, spec Spec) (Source, error) {
	if spec.Path == "" {
		return nil, fmt.Errorf("source path is required")
	}

	kind := spec.Kind
	if kind == "" {
		kind = InferKind(spec.Path)
	}

	var (
		src Source
		err error
	)
	switch kind {
	case KindImage:
		src = NewImageSource(spec.Path)
	case KindDir:
		src, err = NewDirSource(spec.Path)
	case KindFFmpeg:
		src, err = NewFFmpegSource(ctx, spec.Path, spec.FPS, spec.InputArgs)
	default:
		return nil, fmt.Errorf("unknown source kind: %s", kind)
	}
	if err != nil {
		return nil, err
	}

	if spec.Width > 0 {
		src = &resized{Source: src, width: spec.Width}
	}
	return src, nil
}

// With opens spec, passes the source to fn and closes it, returning fn's
// error combined with any close error.
func With(ctx context.Context, spec Spec, fn func(Source) error) (err error) {
	src, err := Open(ctx, spec)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, src.Close())
	}()
	return fn(src)
}

type resized struct {
	Source
	width int
}

func (r *resized) Next(ctx context.Context) (Frame, error) {
	f, err := r.Source.Next(ctx)
	if err != nil {
		return f, err
	}
	f.Image = imaging.ResizeToWidth(f.Image, r.width)
	return f, nil
}
