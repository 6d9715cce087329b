package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/hybrid-detect/internal/config"
	"github.com/ironsheep/hybrid-detect/internal/detection"
	"github.com/ironsheep/hybrid-detect/internal/detectors"
)

// FromConfig builds a Runner from cfg.
//
// Both detectors are built with detectors.New and share logger. File
// detectors are named after their role, so frame "a.png" replays
// "a.primary.json" and "a.secondary.json". The secondary detector is wrapped
// with detectors.MinScore(cfg.SecondaryMinScore). A cfg.MaxFailures of 0
// disables the consecutive-failure limit.
//
// # Errors
//
//   - Returns error if either detector kind cannot be built
//   - Returns error if the merge options are invalid
func FromConfig(cfg *config.Config, logger logrus.FieldLogger) (*Runner, error) {
	primaryOpts, secondaryOpts := cfg.DetectorOptions("primary"), cfg.DetectorOptions("secondary")
	primaryOpts.Logger, secondaryOpts.Logger = logger, logger

	primary, err := detectors.New(cfg.Primary, primaryOpts)
	if err != nil {
		return nil, fmt.Errorf("primary detector: %w", err)
	}
	secondary, err := detectors.New(cfg.Secondary, secondaryOpts)
	if err != nil {
		return nil, fmt.Errorf("secondary detector: %w", err)
	}

	opts, err := cfg.MergeOptions()
	if err != nil {
		return nil, err
	}
	merger, err := detection.NewMerger(opts)
	if err != nil {
		return nil, err
	}

	// A zero limit in the config disables it.
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = -1
	}

	return &Runner{
		Primary:     primary,
		Secondary:   detectors.MinScore(secondary, cfg.SecondaryMinScore),
		Merger:      merger,
		Cascade:     cfg.Cascade,
		MaxFailures: maxFailures,
		Logger:      logger,
	}, nil
}
