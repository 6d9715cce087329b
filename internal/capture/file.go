package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ironsheep/hybrid-detect/internal/imaging"
)

// ImageSource yields a single image file once.
type ImageSource struct {
	path string
	done bool
}

// NewImageSource returns a source for the image at path. The file is read on
// the first call to Next.
func NewImageSource(path string) *ImageSource {
	return &ImageSource{path: path}
}

func (s *ImageSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.done {
		return Frame{}, io.EOF
	}
	s.done = true

	name := filepath.Base(s.path)
	img, err := imaging.Decode(s.path)
	if err != nil {
		return Frame{}, &FrameError{Index: 0, Name: name, Err: err}
	}
	return Frame{Index: 0, Name: name, Image: img}, nil
}

func (s *ImageSource) Close() error { return nil }

// DirSource yields the image files of a directory in name order.
// Subdirectories and non-image files are skipped.
type DirSource struct {
	dir   string
	files []string
	next  int
}

// NewDirSource lists dir and returns a source over its image files.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imaging.IsImageFile(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	return &DirSource{dir: dir, files: files}, nil
}

// Len returns the number of frames the directory holds.
func (s *DirSource) Len() int { return len(s.files) }

func (s *DirSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.files) {
		return Frame{}, io.EOF
	}

	idx := s.next
	name := s.files[idx]
	s.next++

	img, err := imaging.Decode(filepath.Join(s.dir, name))
	if err != nil {
		return Frame{}, &FrameError{Index: idx, Name: name, Err: err}
	}
	return Frame{Index: idx, Name: name, Image: img}, nil
}

func (s *DirSource) Close() error { return nil }
