// Package logging builds the process logger.
//
// Output always goes to stderr because stdout carries the MCP protocol. When a
// file is configured the same entries are teed to a size-rotated log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is a set of structured log fields.
type Fields = logrus.Fields

// Options configures New.
type Options struct {
	Level string // trace, debug, info, warn, error
	File  string // optional rotating log file
	Color bool

	// Output overrides stderr, mainly for tests.
	Output io.Writer
}

// New returns a configured logger and a function that closes any log file.
func New(opts Options) (*logrus.Logger, func() error, error) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetReportCaller(level >= logrus.DebugLevel)
	logger.SetFormatter(&formatter.Formatter{
		NoColors:        !opts.Color,
		TimestampFormat: "2006-01-02 15:04:05",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, s[len(s)-1])
		},
	})

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	closer := func() error { return nil }
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50,
			MaxAge:     7,
			MaxBackups: 3,
		}
		out = io.MultiWriter(out, file)
		closer = file.Close
	}
	logger.SetOutput(out)

	return logger, closer, nil
}

// Discard returns a logger that writes nothing.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
