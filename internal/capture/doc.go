// Package capture produces the frames the detector pipeline consumes.
//
// A Source yields frames in order until it returns io.EOF. Sources are opened
// from a Spec with Open, or scoped with With, which guarantees the source is
// closed on every exit path and folds a close error into the caller's error.
//
// # Source Kinds
//
//   - image (ImageSource): A single PNG, JPEG or GIF file, yielded once
//   - dir (DirSource): Every image file in a directory, in name order; other
//     files are ignored
//   - ffmpeg (FFmpegSource): Anything ffmpeg can read (video files, V4L2
//     devices, RTSP and HTTP streams), piped back as MJPEG
//
// When Spec.Kind is empty, InferKind picks dir for directories, image for
// files with an image extension, and ffmpeg for everything else.
//
// # Frame Identity
//
// Frame.Index counts from 0 in source order, including frames that failed to
// decode, so indices stay aligned with the input. Frame.Name is the file name
// for image and directory sources and a zero-padded counter ("frame-000042")
// for ffmpeg. The file detector and the file sink key their files on
// Frame.Stem.
//
// # Error Handling
//
// A frame that cannot be decoded is reported as a *FrameError and the source
// moves on, so callers can log it and keep going:
//
//	frame, err := src.Next(ctx)
//	var frameErr *capture.FrameError
//	switch {
//	case errors.Is(err, io.EOF):
//	    // done
//	case errors.As(err, &frameErr):
//	    // skip this frame
//	case err != nil:
//	    // the source itself failed; stop
//	}
//
// Any other error ends the stream. Context cancellation is reported as the
// context's error.
//
// # Scaling
//
// Spec.Width downscales wider frames (Lanczos, via disintegration/imaging)
// before they reach the detectors. Narrower frames are passed through.
package capture
