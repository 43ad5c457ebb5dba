// Package config handles scanlab configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/scanlab/pkg/colors"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Strategy names.
const (
	AlignFixedOffset = "fixed-offset"
	AlignICP         = "icp"

	DiffUniform   = "uniform"
	DiffDeviation = "deviation"
)

// Config holds all scanlab settings.
type Config struct {
	Engine         EngineConfig         `yaml:"engine"`
	Colors         ColorsConfig         `yaml:"colors"`
	Classification ClassificationConfig `yaml:"classification"`
	Extraction     ExtractionConfig     `yaml:"extraction"`
	Loading        LoadingConfig        `yaml:"loading"`
	Logging        LoggingConfig        `yaml:"logging"`
	Metrics        MetricsConfig        `yaml:"metrics"`
}

// EngineConfig holds placement, alignment and comparison settings.
type EngineConfig struct {
	ReferencePreset [3]float32       `yaml:"reference_preset"`
	ScanPreset      [3]float32       `yaml:"scan_preset"`
	Alignment       AlignmentConfig  `yaml:"alignment"`
	Difference      DifferenceConfig `yaml:"difference"`
}

// AlignmentConfig selects and tunes the alignment strategy.
type AlignmentConfig struct {
	Strategy         string        `yaml:"strategy"`          // fixed-offset or icp
	CalibrationAngle float32       `yaml:"calibration_angle"` // Degrees about Y
	MaxIterations    int           `yaml:"max_iterations"`
	Tolerance        float64       `yaml:"tolerance"`
	SampleSize       int           `yaml:"sample_size"`
	Quality          QualityConfig `yaml:"quality"`
}

// QualityConfig holds RMSE thresholds in mesh units.
type QualityConfig struct {
	Excellent float64 `yaml:"excellent"`
	Good      float64 `yaml:"good"`
	Fair      float64 `yaml:"fair"`
}

// DifferenceConfig selects and tunes the comparison coloring.
type DifferenceConfig struct {
	Strategy string       `yaml:"strategy"` // uniform or deviation
	Bands    []BandConfig `yaml:"bands"`
	Beyond   colors.Color `yaml:"beyond"`
}

// BandConfig colors deviations up to Max.
type BandConfig struct {
	Max   float64      `yaml:"max"`
	Color colors.Color `yaml:"color"`
}

// ColorsConfig holds the display colors.
type ColorsConfig struct {
	Base       colors.Color `yaml:"base"`
	Highlight  colors.Color `yaml:"highlight"`
	Neutral    colors.Color `yaml:"neutral"`
	Extraction colors.Color `yaml:"extraction"`
}

// ClassificationConfig holds optional rule set files replacing the
// built-in heuristics.
type ClassificationConfig struct {
	SingleMesh string `yaml:"single_mesh"`
	DualMesh   string `yaml:"dual_mesh"`
}

// ExtractionConfig holds the auxiliary reference resource settings.
type ExtractionConfig struct {
	Resource    string `yaml:"resource"`
	OverrideDir string `yaml:"override_dir"`
}

// LoadingConfig holds mesh loading settings.
type LoadingConfig struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"` // 0 waits forever
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			ReferencePreset: [3]float32{-200, 0, 0},
			ScanPreset:      [3]float32{200, 0, 0},
			Alignment: AlignmentConfig{
				Strategy:         AlignFixedOffset,
				CalibrationAngle: 135,
				MaxIterations:    50,
				Tolerance:        1e-6,
				SampleSize:       2000,
				Quality: QualityConfig{
					Excellent: 0.05,
					Good:      0.15,
					Fair:      0.30,
				},
			},
			Difference: DifferenceConfig{
				Strategy: DiffUniform,
				Bands: []BandConfig{
					{Max: 0.1, Color: colors.Hex(0x34c759)},
					{Max: 0.5, Color: colors.Hex(0xffcc00)},
					{Max: 1.0, Color: colors.Hex(0xff9500)},
				},
				Beyond: colors.Hex(0xff3b30),
			},
		},
		Colors: ColorsConfig{
			Base:       colors.Base,
			Highlight:  colors.Highlight,
			Neutral:    colors.Neutral,
			Extraction: colors.Extraction,
		},
		Extraction: ExtractionConfig{
			Resource: "extracted_reference.stl",
		},
		Loading: LoadingConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Namespace: "scanlab",
		},
	}
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	switch c.Engine.Alignment.Strategy {
	case AlignFixedOffset, AlignICP:
	default:
		return fmt.Errorf("%w: unknown alignment strategy %q", ErrInvalid, c.Engine.Alignment.Strategy)
	}
	switch c.Engine.Difference.Strategy {
	case DiffUniform, DiffDeviation:
	default:
		return fmt.Errorf("%w: unknown difference strategy %q", ErrInvalid, c.Engine.Difference.Strategy)
	}
	if c.Engine.Difference.Strategy == DiffDeviation && len(c.Engine.Difference.Bands) == 0 {
		return fmt.Errorf("%w: deviation strategy needs bands", ErrInvalid)
	}
	if c.Loading.Workers < 1 {
		return fmt.Errorf("%w: loading.workers must be at least 1, got %d", ErrInvalid, c.Loading.Workers)
	}
	if c.Loading.Timeout < 0 {
		return fmt.Errorf("%w: loading.timeout must not be negative", ErrInvalid)
	}
	return nil
}
