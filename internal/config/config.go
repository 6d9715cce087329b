// Package config loads runtime settings from an optional .env file and
// HYBRID_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/ironsheep/hybrid-detect/internal/detection"
	"github.com/ironsheep/hybrid-detect/internal/detectors"
)

// Prefix is prepended to every environment key.
const Prefix = "HYBRID_"

// Config holds every tunable of the detector pipeline and its front ends.
type Config struct {
	AssocIoU      float64 `validate:"gte=0,lte=1"`
	NMSIoU        float64 `validate:"gte=0,lte=1"`
	MatchPolicy   string  `validate:"oneof=first best"`
	IntegerPixels bool

	Primary           string  `validate:"oneof=shapes blobs text ocr file"`
	Secondary         string  `validate:"oneof=shapes blobs text ocr file"`
	SecondaryMinScore float64 `validate:"gte=0,lte=1"`
	Cascade           bool
	DetectionsDir     string
	OCRLanguage       string `validate:"required"`

	MaxFailures int `validate:"gte=0"`

	LogLevel string `validate:"oneof=trace debug info warn warning error"`
	LogFile  string

	WebAddr string `validate:"required"`
	WebRoot string `validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AssocIoU:          detection.DefaultAssociationThreshold,
		NMSIoU:            detection.DefaultSuppressionThreshold,
		MatchPolicy:       "first",
		Primary:           "shapes",
		Secondary:         "blobs",
		SecondaryMinScore: 0.5,
		OCRLanguage:       "eng",
		MaxFailures:       10,
		LogLevel:          "info",
		WebAddr:           ":8000",
		WebRoot:           "./web",
	}
}

// Load builds the runtime configuration.
//
// Settings are resolved in order, later sources winning:
//  1. Default()
//  2. The given .env files (".env" when none are named), loaded with godotenv
//     without overriding variables already in the environment
//  3. HYBRID_* environment variables
//
// A missing .env file is not an error; any other read failure is.
//
// # Errors
//
//   - Returns every unparsable HYBRID_* value at once, combined with multierr
//   - Returns the first validation failure (out-of-range thresholds, unknown
//     detector kinds, NaN, a file detector without HYBRID_DETECTIONS_DIR)
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from lookup. Every unparsable value is reported.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs error
	str := func(key string, dst *string) {
		if v, ok := lookup(Prefix + key); ok && v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	float := func(key string, dst *float64) {
		v, ok := lookup(Prefix + key)
		if !ok || v == "" {
			return
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
			return
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %q is not a finite number", Prefix, key, v))
			return
		}
		*dst = f
	}
	integer := func(key string, dst *int) {
		v, ok := lookup(Prefix + key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
			return
		}
		*dst = n
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(Prefix + key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
			return
		}
		*dst = b
	}

	float("ASSOC_IOU", &c.AssocIoU)
	float("NMS_IOU", &c.NMSIoU)
	str("MATCH_POLICY", &c.MatchPolicy)
	boolean("INTEGER_PIXELS", &c.IntegerPixels)
	str("PRIMARY", &c.Primary)
	str("SECONDARY", &c.Secondary)
	float("SECONDARY_MIN_SCORE", &c.SecondaryMinScore)
	boolean("CASCADE", &c.Cascade)
	str("DETECTIONS_DIR", &c.DetectionsDir)
	str("OCR_LANGUAGE", &c.OCRLanguage)
	integer("MAX_FAILURES", &c.MaxFailures)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)
	str("WEB_ADDR", &c.WebAddr)
	str("WEB_ROOT", &c.WebRoot)

	c.MatchPolicy = strings.ToLower(c.MatchPolicy)
	c.LogLevel = strings.ToLower(c.LogLevel)
	return errs
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{"AssocIoU": c.AssocIoU, "NMSIoU": c.NMSIoU, "SecondaryMinScore": c.SecondaryMinScore} {
		if math.IsNaN(v) {
			return fmt.Errorf("invalid configuration: %s is NaN", name)
		}
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if (c.Primary == "file" || c.Secondary == "file") && c.DetectionsDir == "" {
		return fmt.Errorf("invalid configuration: %sDETECTIONS_DIR is required for the file detector", Prefix)
	}
	return nil
}

// MergeOptions converts the merge settings for detection.NewMerger.
func (c *Config) MergeOptions() (detection.MergeOptions, error) {
	policy, err := detection.ParseMatchPolicy(c.MatchPolicy)
	if err != nil {
		return detection.MergeOptions{}, err
	}
	return detection.MergeOptions{
		AssociationThreshold: c.AssocIoU,
		SuppressionThreshold: c.NMSIoU,
		Policy:               policy,
		IntegerPixels:        c.IntegerPixels,
	}, nil
}

// DetectorOptions returns the options for the detector filling role
// ("primary" or "secondary"). File detectors are named after their role, so
// a frame "a.png" reads "a.primary.json" and "a.secondary.json".
func (c *Config) DetectorOptions(role string) detectors.Options {
	opts := detectors.Options{Language: c.OCRLanguage, Dir: c.DetectionsDir}
	kind := c.Primary
	if role == "secondary" {
		kind = c.Secondary
	}
	if kind == "file" {
		opts.Name = role
	}
	return opts
}
