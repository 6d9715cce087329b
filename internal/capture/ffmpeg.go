package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"os/exec"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const maxJPEGSize = 32 << 20

// FFmpegSource decodes frames from any input ffmpeg understands. ffmpeg runs
// as a child process and writes an MJPEG stream to a pipe, which is split at
// JPEG end-of-image markers.
type FFmpegSource struct {
	frames chan ffmpegFrame
	cancel context.CancelFunc
	pipe   *io.PipeReader
	wg     sync.WaitGroup

	mu     sync.Mutex
	runErr error
}

type ffmpegFrame struct {
	data  []byte
	index int
}

// NewFFmpegSource starts ffmpeg on input. fps of 0 keeps the input rate.
// ffmpeg keeps running until the input ends or Close is called.
func NewFFmpegSource(ctx context.Context, input string, fps float64, inputArgs map[string]interface{}) (*FFmpegSource, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	outArgs := ffmpeg.KwArgs{
		"format": "image2pipe",
		"vcodec": "mjpeg",
		"q:v":    3,
	}
	if fps > 0 {
		outArgs["r"] = fps
	}

	runCtx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	s := &FFmpegSource{
		frames: make(chan ffmpegFrame),
		cancel: cancel,
		pipe:   pr,
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		stream := ffmpeg.Input(input, ffmpeg.KwArgs(inputArgs)).Output("pipe:", outArgs)
		stream.Context = runCtx
		err := stream.WithOutput(pw).Run()
		if err != nil && runCtx.Err() == nil {
			s.mu.Lock()
			s.runErr = fmt.Errorf("ffmpeg failed on %s: %w", input, err)
			s.mu.Unlock()
		}
		pw.CloseWithError(err)
	}()

	go func() {
		defer s.wg.Done()
		defer close(s.frames)

		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 1<<20), maxJPEGSize)
		scanner.Split(splitJPEG)

		for i := 0; scanner.Scan(); i++ {
			data := append([]byte(nil), scanner.Bytes()...)
			select {
			case s.frames <- ffmpegFrame{data: data, index: i}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	return s, nil
}

// Next returns the next decoded frame. A frame whose JPEG data is corrupt is
// reported as a *FrameError. When ffmpeg exits with an error, that error is
// returned instead of io.EOF.
func (s *FFmpegSource) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case f, ok := <-s.frames:
		if !ok {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.runErr != nil {
				return Frame{}, s.runErr
			}
			return Frame{}, io.EOF
		}

		name := fmt.Sprintf("frame-%06d", f.index)
		img, err := jpeg.Decode(bytes.NewReader(f.data))
		if err != nil {
			return Frame{}, &FrameError{Index: f.index, Name: name, Err: err}
		}
		return Frame{Index: f.index, Name: name, Image: img}, nil
	}
}

// Close stops ffmpeg and waits for the reader to finish.
func (s *FFmpegSource) Close() error {
	s.cancel()
	s.pipe.Close()
	s.wg.Wait()
	return nil
}

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// splitJPEG is a bufio.SplitFunc yielding one complete JPEG per token.
// Bytes before a start-of-image marker are discarded.
func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF in case it starts a marker.
		if n := len(data); n > 0 {
			return n - 1, nil, nil
		}
		return 0, nil, nil
	}

	end := bytes.Index(data[start+2:], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	stop := start + 2 + end + 2
	return stop, data[start:stop], nil
}
