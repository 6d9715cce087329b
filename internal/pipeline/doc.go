// Package pipeline runs the hybrid detector over a stream of frames.
//
// For every frame a Runner runs the primary and the secondary detector, merges
// their output with a detection.Merger and hands a FrameResult to a Sink. The
// loop is synchronous: one frame is fully processed and written before the
// next is read.
//
// # Cascade Mode
//
// With Runner.Cascade set, the secondary detector is run on a crop around each
// primary detection (grown by CascadePad on every side) instead of on the
// whole frame. Boxes found in a crop are translated back into frame
// coordinates before merging, so the merge engine sees one coordinate space
// either way. Primary boxes that fall outside the frame are skipped.
//
// # Failure Handling
//
// A frame that cannot be read (*capture.FrameError) or whose detectors fail is
// logged and counted in RunStats.Skipped, and the loop moves on. Run stops:
//   - at the end of the source (returns nil)
//   - on context cancellation (returns the context error)
//   - on a sink error or a source error other than *capture.FrameError
//   - after MaxFailures consecutive failed frames (default DefaultMaxFailures);
//     a successful frame resets the count
//
// # Sinks
//
//   - LogSink: One structured log line per frame
//   - JSONSink: One FrameResult JSON object per line
//   - FileSink: <stem>.primary.png, <stem>.secondary.png and <stem>.hybrid.png,
//     each annotated with its own detections
//   - MultiSink: Fans a result out to several sinks
//
// # Example Usage
//
//	runner, err := pipeline.FromConfig(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	sink := pipeline.MultiSink{pipeline.LogSink{Logger: logger}, pipeline.NewJSONSink(os.Stdout)}
//	err = capture.With(ctx, capture.Spec{Path: "clip.mp4"}, func(src capture.Source) error {
//	    _, err := runner.Run(ctx, src, sink)
//	    return err
//	})
package pipeline
