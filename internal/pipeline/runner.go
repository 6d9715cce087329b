package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/detection"
	"github.com/ironsheep/hybrid-detect/internal/detectors"
	"github.com/ironsheep/hybrid-detect/internal/imaging"
	"github.com/ironsheep/hybrid-detect/internal/logging"
)

// DefaultMaxFailures is the number of consecutive failed frames after which
// Run gives up.
const DefaultMaxFailures = 10

// FrameResult is everything produced for one frame.
type FrameResult struct {
	// ID is a fresh random identifier, unique per processed frame even when
	// the same image is processed twice.
	ID uuid.UUID `json:"id"`

	// Index and Name are copied from the capture.Frame.
	Index int    `json:"index"`
	Name  string `json:"name"`

	// Primary and Secondary are each detector's raw output. In cascade mode
	// Secondary is already in frame coordinates.
	Primary   detection.List `json:"primary"`
	Secondary detection.List `json:"secondary"`

	// Merged is the final list after association and suppression.
	Merged detection.List `json:"merged"`

	Matched     int `json:"matched"`
	PassThrough int `json:"pass_through"`
	Dropped     int `json:"dropped"`
	Suppressed  int `json:"suppressed"`

	// Elapsed covers both detectors and the merge.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// RunStats summarises a call to Run.
type RunStats struct {
	Frames     int           `json:"frames"`
	Processed  int           `json:"processed"`
	Skipped    int           `json:"skipped"`
	Detections int           `json:"detections"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Runner merges the output of two detectors frame by frame.
type Runner struct {
	Primary   detectors.Detector
	Secondary detectors.Detector

	// Merger defaults to detection.DefaultMergeOptions when nil.
	Merger *detection.Merger

	// Cascade runs Secondary on a crop around each primary detection instead
	// of on the whole frame. CascadePad grows each crop on every side.
	Cascade    bool
	CascadePad int

	// MaxFailures stops Run after this many consecutive failed frames.
	// 0 means DefaultMaxFailures; a negative value never stops.
	MaxFailures int

	// MaxFrames stops Run after this many processed frames; 0 means no limit.
	MaxFrames int

	Logger logrus.FieldLogger
}

func (r *Runner) log() logrus.FieldLogger {
	if r.Logger == nil {
		return logging.Discard()
	}
	return r.Logger
}

// defaultMerger serves runners without a Merger. Mergers are stateless, so
// one instance is shared.
var defaultMerger, _ = detection.NewMerger(detection.DefaultMergeOptions())

// merger never writes to r, so a Runner may process frames from several
// goroutines.
func (r *Runner) merger() *detection.Merger {
	if r.Merger == nil {
		return defaultMerger
	}
	return r.Merger
}

// ProcessFrame runs both detectors on frame and merges their output.
//
// The secondary detector sees the whole frame, or in cascade mode one crop
// per primary detection. ProcessFrame does not modify r and may be called
// from several goroutines as long as the detectors allow it.
//
// # Errors
//
//   - Returns error if Primary or Secondary is nil
//   - Returns the first detector error, wrapped with the detector's name
func (r *Runner) ProcessFrame(ctx context.Context, frame capture.Frame) (*FrameResult, error) {
	if r.Primary == nil || r.Secondary == nil {
		return nil, errors.New("runner needs a primary and a secondary detector")
	}
	start := time.Now()

	primary, err := r.Primary.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("primary detector %s: %w", r.Primary.Name(), err)
	}

	var secondary detection.List
	if r.Cascade {
		secondary, err = r.cascade(ctx, frame, primary)
	} else {
		secondary, err = r.Secondary.Detect(ctx, frame)
	}
	if err != nil {
		return nil, fmt.Errorf("secondary detector %s: %w", r.Secondary.Name(), err)
	}

	merged := r.merger().Merge(primary, secondary)

	return &FrameResult{
		ID:          uuid.New(),
		Index:       frame.Index,
		Name:        frame.Name,
		Primary:     primary,
		Secondary:   secondary,
		Merged:      merged.Detections,
		Matched:     merged.Matched,
		PassThrough: merged.PassThrough,
		Dropped:     merged.Dropped,
		Suppressed:  merged.Suppressed,
		Elapsed:     time.Since(start),
	}, nil
}

// cascade runs the secondary detector on each primary region and maps the
// boxes it finds back into frame coordinates.
func (r *Runner) cascade(ctx context.Context, frame capture.Frame, primary detection.List) (detection.List, error) {
	out := make(detection.List, 0)
	for i, p := range primary {
		crop, offset, err := imaging.CropBox(frame.Image, p.Box(), r.CascadePad)
		if err != nil {
			r.log().WithFields(logging.Fields{"frame": frame.Name, "region": i}).Debugf("skipping cascade region: %v", err)
			continue
		}

		found, err := r.Secondary.Detect(ctx, capture.Frame{Index: frame.Index, Name: frame.Name, Image: crop})
		if err != nil {
			return nil, err
		}
		out = append(out, found.Translate(float64(offset.X), float64(offset.Y))...)
	}
	return out, nil
}

// Run processes frames from src until it is exhausted and passes every
// result to sink.
//
// Parameters:
//   - ctx: Cancelling it stops the loop after the current frame.
//   - src: Frame source. Run does not close it; see capture.With.
//   - sink: Receives one FrameResult per processed frame. Run does not close
//     it either.
//
// Returns:
//   - RunStats: Counts for the frames seen so far. Valid even when err is
//     non-nil.
//   - error: nil at the end of the source; otherwise the reason the loop
//     stopped early (see the package documentation).
//
// Unreadable frames and detector failures are logged at warn level and
// skipped.
func (r *Runner) Run(ctx context.Context, src capture.Source, sink Sink) (stats RunStats, err error) {
	start := time.Now()
	defer func() { stats.Elapsed = time.Since(start) }()

	maxFailures := r.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultMaxFailures
	}
	failures := 0

	fail := func(err error) error {
		stats.Skipped++
		failures++
		if maxFailures > 0 && failures >= maxFailures {
			return fmt.Errorf("giving up after %d consecutive failed frames: %w", failures, err)
		}
		return nil
	}

	for r.MaxFrames <= 0 || stats.Processed < r.MaxFrames {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		var frameErr *capture.FrameError
		if errors.As(err, &frameErr) {
			stats.Frames++
			r.log().WithFields(logging.Fields{"frame": frameErr.Name, "index": frameErr.Index}).Warnf("skipping unreadable frame: %v", frameErr.Err)
			if err := fail(err); err != nil {
				return stats, err
			}
			continue
		}
		if err != nil {
			return stats, err
		}
		stats.Frames++

		res, err := r.ProcessFrame(ctx, frame)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			r.log().WithFields(logging.Fields{"frame": frame.Name, "index": frame.Index}).Warnf("skipping frame: %v", err)
			if err := fail(err); err != nil {
				return stats, err
			}
			continue
		}
		failures = 0

		if err := sink.Write(ctx, frame, res); err != nil {
			return stats, fmt.Errorf("sink failed on frame %s: %w", frame.Name, err)
		}
		stats.Processed++
		stats.Detections += len(res.Merged)
	}

	return stats, nil
}
