package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ironsheep/hybrid-detect/internal/capture"
	"github.com/ironsheep/hybrid-detect/internal/config"
	"github.com/ironsheep/hybrid-detect/internal/detection"
	"github.com/ironsheep/hybrid-detect/internal/detectors"
	"github.com/ironsheep/hybrid-detect/internal/logging"
	"github.com/ironsheep/hybrid-detect/internal/pipeline"
	"github.com/ironsheep/hybrid-detect/internal/server"
	"github.com/ironsheep/hybrid-detect/internal/webapp"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	flagEnv      = "env"
	flagLogLevel = "log-level"
	flagLogFile  = "log-file"

	flagAssocIoU      = "assoc-iou"
	flagNMSIoU        = "nms-iou"
	flagPolicy        = "policy"
	flagIntegerPixels = "integer-pixels"

	flagSource    = "source"
	flagKind      = "kind"
	flagWidth     = "width"
	flagFPS       = "fps"
	flagOut       = "out"
	flagJSON      = "json"
	flagMaxFrames = "max-frames"
	flagPrimary   = "primary"
	flagSecondary = "secondary"
	flagMinScore  = "secondary-min-score"
	flagCascade   = "cascade"
	flagDetDir    = "detections-dir"

	flagAddr = "addr"
	flagRoot = "root"
)

// app holds what Before builds for the commands.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	close  func() error
}

func main() {
	a := &app{}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "%s %s\n", c.App.Name, c.App.Version)
		fmt.Fprintf(c.App.Writer, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(c.App.Writer, "  Git commit: %s\n", GitCommit)
	}

	cliApp := &cli.App{
		Name:    "hybrid-detect",
		Usage:   "merge the output of two object detectors",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  flagEnv,
				Usage: "load settings from `FILE` (default .env when present)",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "trace, debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to a rotating `FILE`",
			},
		},
		Before: a.setup,
		After: func(*cli.Context) error {
			if a.close != nil {
				return a.close()
			}
			return nil
		},
		// With no command the binary is an MCP server, so it can be
		// registered with an MCP client as is.
		Action: a.mcp,
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "serve MCP tools over stdin/stdout",
				Action: a.mcp,
			},
			{
				Name:      "run",
				Usage:     "run both detectors over an image, a directory of frames or a video",
				ArgsUsage: " ",
				Flags: append(mergeFlags(),
					&cli.StringFlag{Name: flagSource, Aliases: []string{"s"}, Required: true, Usage: "image, directory, video file, URL or device"},
					&cli.StringFlag{Name: flagKind, Usage: "source kind: image, dir or ffmpeg (default inferred)"},
					&cli.IntFlag{Name: flagWidth, Usage: "downscale frames wider than this"},
					&cli.Float64Flag{Name: flagFPS, Usage: "ffmpeg frame rate limit"},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "write annotated primary/secondary/hybrid PNGs to `DIR`"},
					&cli.StringFlag{Name: flagJSON, Usage: "write one JSON result per frame to `FILE` (- for stdout)"},
					&cli.IntFlag{Name: flagMaxFrames, Usage: "stop after this many frames"},
					&cli.StringFlag{Name: flagPrimary, Usage: fmt.Sprintf("primary detector %v", detectors.Kinds())},
					&cli.StringFlag{Name: flagSecondary, Usage: fmt.Sprintf("secondary detector %v", detectors.Kinds())},
					&cli.Float64Flag{Name: flagMinScore, Usage: "drop secondary detections below this confidence"},
					&cli.BoolFlag{Name: flagCascade, Usage: "run the secondary detector on each primary crop"},
					&cli.StringFlag{Name: flagDetDir, Usage: "directory of <frame>.<role>.json files for the file detector"},
				),
				Action: a.run,
			},
			{
				Name:      "merge",
				Usage:     "merge two JSON detection files and print the result",
				ArgsUsage: "PRIMARY.json SECONDARY.json",
				Flags:     mergeFlags(),
				Action:    a.merge,
			},
			{
				Name:  "serve",
				Usage: "serve the web front end",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagAddr, Usage: "listen address"},
					&cli.StringFlag{Name: flagRoot, Usage: "directory to serve"},
				},
				Action: a.serve,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		if a.logger != nil {
			a.logger.Error(err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func mergeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: flagAssocIoU, Usage: "IoU a cross-model pair must exceed to merge"},
		&cli.Float64Flag{Name: flagNMSIoU, Usage: "IoU above which NMS drops the weaker detection"},
		&cli.StringFlag{Name: flagPolicy, Usage: "match policy: first or best"},
		&cli.BoolFlag{Name: flagIntegerPixels, Usage: "truncate merged boxes to whole pixels"},
	}
}

// setup loads the configuration and builds the logger. Logs go to stderr;
// stdout is reserved for MCP and JSON output.
func (a *app) setup(c *cli.Context) error {
	cfg, err := config.Load(c.StringSlice(flagEnv)...)
	if err != nil {
		return err
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
	if c.IsSet(flagLogFile) {
		cfg.LogFile = c.String(flagLogFile)
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.close = cfg, logger, closeLog
	return nil
}

// applyFlags copies the command's flags that were set over the config and
// revalidates it.
func (a *app) applyFlags(c *cli.Context) error {
	cfg := a.cfg
	if c.IsSet(flagAssocIoU) {
		cfg.AssocIoU = c.Float64(flagAssocIoU)
	}
	if c.IsSet(flagNMSIoU) {
		cfg.NMSIoU = c.Float64(flagNMSIoU)
	}
	if c.IsSet(flagPolicy) {
		cfg.MatchPolicy = c.String(flagPolicy)
	}
	if c.IsSet(flagIntegerPixels) {
		cfg.IntegerPixels = c.Bool(flagIntegerPixels)
	}
	if c.IsSet(flagPrimary) {
		cfg.Primary = c.String(flagPrimary)
	}
	if c.IsSet(flagSecondary) {
		cfg.Secondary = c.String(flagSecondary)
	}
	if c.IsSet(flagMinScore) {
		cfg.SecondaryMinScore = c.Float64(flagMinScore)
	}
	if c.IsSet(flagCascade) {
		cfg.Cascade = c.Bool(flagCascade)
	}
	if c.IsSet(flagDetDir) {
		cfg.DetectionsDir = c.String(flagDetDir)
	}
	if c.IsSet(flagAddr) {
		cfg.WebAddr = c.String(flagAddr)
	}
	if c.IsSet(flagRoot) {
		cfg.WebRoot = c.String(flagRoot)
	}
	return cfg.Validate()
}

func (a *app) mcp(c *cli.Context) error {
	opts, err := a.cfg.MergeOptions()
	if err != nil {
		return err
	}
	a.logger.Debugf("hybrid-detect MCP server %s (built %s, commit %s)", Version, BuildTime, GitCommit)

	srv := server.New(server.Options{
		Merge:             opts,
		Detector:          detectors.Options{Language: a.cfg.OCRLanguage, Dir: a.cfg.DetectionsDir},
		SecondaryMinScore: a.cfg.SecondaryMinScore,
		Version:           Version,
		Logger:            a.logger,
	})
	return srv.Run(c.Context)
}

func (a *app) run(c *cli.Context) error {
	if err := a.applyFlags(c); err != nil {
		return err
	}
	runner, err := pipeline.FromConfig(a.cfg, a.logger)
	if err != nil {
		return err
	}
	runner.MaxFrames = c.Int(flagMaxFrames)

	sink, err := a.sinks(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			a.logger.Warnf("closing output: %v", err)
		}
	}()

	spec := capture.Spec{
		Kind:  c.String(flagKind),
		Path:  c.String(flagSource),
		Width: c.Int(flagWidth),
		FPS:   c.Float64(flagFPS),
	}
	a.logger.WithFields(logging.Fields{
		"source":    spec.Path,
		"primary":   a.cfg.Primary,
		"secondary": a.cfg.Secondary,
		"policy":    a.cfg.MatchPolicy,
		"cascade":   a.cfg.Cascade,
	}).Info("starting run")

	return capture.With(c.Context, spec, func(src capture.Source) error {
		stats, err := runner.Run(c.Context, src, sink)
		a.logger.WithFields(logging.Fields{
			"frames":     stats.Frames,
			"processed":  stats.Processed,
			"skipped":    stats.Skipped,
			"detections": stats.Detections,
		}).Infof("run finished in %v", stats.Elapsed)
		return err
	})
}

// sinks builds the outputs selected by the run flags. Per-frame log lines
// are always written.
func (a *app) sinks(c *cli.Context) (pipeline.Sink, error) {
	sinks := pipeline.MultiSink{pipeline.LogSink{Logger: a.logger}}

	if dir := c.String(flagOut); dir != "" {
		fs, err := pipeline.NewFileSink(dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}

	switch path := c.String(flagJSON); path {
	case "":
	case "-":
		sinks = append(sinks, pipeline.NewJSONSink(os.Stdout))
	default:
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, pipeline.NewJSONSink(f))
	}
	return sinks, nil
}

func (a *app) merge(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("merge needs PRIMARY.json and SECONDARY.json", 2)
	}
	if err := a.applyFlags(c); err != nil {
		return err
	}
	opts, err := a.cfg.MergeOptions()
	if err != nil {
		return err
	}
	merger, err := detection.NewMerger(opts)
	if err != nil {
		return err
	}

	primary, err := a.readDetections(c.Args().Get(0))
	if err != nil {
		return err
	}
	secondary, err := a.readDetections(c.Args().Get(1))
	if err != nil {
		return err
	}

	return writeJSON(c.App.Writer, merger.Merge(primary, secondary))
}

// readDetections loads a detection file, keeping its valid records when
// some are rejected.
func (a *app) readDetections(path string) (detection.List, error) {
	list, err := detectors.ReadFile(path)
	if err != nil && list != nil {
		a.logger.Warn(err)
		return list, nil
	}
	return list, err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) serve(c *cli.Context) error {
	if err := a.applyFlags(c); err != nil {
		return err
	}
	srv, err := webapp.New(a.cfg.WebRoot, a.logger)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(c.Context, a.cfg.WebAddr)
}
