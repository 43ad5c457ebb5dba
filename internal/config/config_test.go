package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/scanlab/pkg/colors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Engine defaults
	if cfg.Engine.ReferencePreset != [3]float32{-200, 0, 0} {
		t.Errorf("expected reference preset (-200,0,0), got %v", cfg.Engine.ReferencePreset)
	}
	if cfg.Engine.ScanPreset != [3]float32{200, 0, 0} {
		t.Errorf("expected scan preset (200,0,0), got %v", cfg.Engine.ScanPreset)
	}
	if cfg.Engine.Alignment.Strategy != AlignFixedOffset {
		t.Errorf("expected fixed-offset alignment, got %s", cfg.Engine.Alignment.Strategy)
	}
	if cfg.Engine.Alignment.CalibrationAngle != 135 {
		t.Errorf("expected calibration angle 135, got %v", cfg.Engine.Alignment.CalibrationAngle)
	}
	if cfg.Engine.Difference.Strategy != DiffUniform {
		t.Errorf("expected uniform difference, got %s", cfg.Engine.Difference.Strategy)
	}

	// Color defaults
	if cfg.Colors.Base.Uint32() != 0x5090c2 {
		t.Errorf("expected base #5090c2, got %s", cfg.Colors.Base)
	}

	if cfg.Extraction.Resource != "extracted_reference.stl" {
		t.Errorf("unexpected extraction resource %s", cfg.Extraction.Resource)
	}
	if cfg.Loading.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Loading.Workers)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "scanlab.yaml")

	yamlContent := `
engine:
  reference_preset: [-50, 0, 0]
  scan_preset: [50, 0, 10]
  alignment:
    strategy: icp
    max_iterations: 20
    quality:
      excellent: 0.01
  difference:
    strategy: deviation
    bands:
      - max: 0.2
        color: "#00ff00"
    beyond: "#ff00ff"

colors:
  base: "#101010"
  highlight: "0xff0000"

classification:
  single_mesh: rules/single.yaml

extraction:
  override_dir: /opt/scanlab/assets

loading:
  workers: 8
  timeout: 30s

logging:
  level: "debug"
  log_file: "scanlab.log"

metrics:
  enabled: true
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Engine.ScanPreset != [3]float32{50, 0, 10} {
		t.Errorf("expected scan preset (50,0,10), got %v", cfg.Engine.ScanPreset)
	}
	if cfg.Engine.Alignment.Strategy != AlignICP || cfg.Engine.Alignment.MaxIterations != 20 {
		t.Errorf("unexpected alignment: %+v", cfg.Engine.Alignment)
	}
	// Keys absent from the file keep their defaults
	if cfg.Engine.Alignment.Quality.Good != 0.15 {
		t.Errorf("expected default good threshold, got %v", cfg.Engine.Alignment.Quality.Good)
	}
	if cfg.Engine.Alignment.CalibrationAngle != 135 {
		t.Errorf("expected default calibration angle, got %v", cfg.Engine.Alignment.CalibrationAngle)
	}
	if len(cfg.Engine.Difference.Bands) != 1 || cfg.Engine.Difference.Bands[0].Color.Uint32() != 0x00ff00 {
		t.Errorf("unexpected bands: %+v", cfg.Engine.Difference.Bands)
	}
	if cfg.Engine.Difference.Beyond.Uint32() != 0xff00ff {
		t.Errorf("unexpected beyond color %s", cfg.Engine.Difference.Beyond)
	}

	if cfg.Colors.Base.Uint32() != 0x101010 || cfg.Colors.Highlight.Uint32() != 0xff0000 {
		t.Errorf("unexpected colors: %+v", cfg.Colors)
	}
	if cfg.Colors.Neutral != colors.Neutral {
		t.Errorf("expected default neutral, got %s", cfg.Colors.Neutral)
	}

	if cfg.Classification.SingleMesh != "rules/single.yaml" {
		t.Errorf("unexpected single mesh rules %q", cfg.Classification.SingleMesh)
	}
	if cfg.Extraction.OverrideDir != "/opt/scanlab/assets" {
		t.Errorf("unexpected override dir %q", cfg.Extraction.OverrideDir)
	}
	if cfg.Loading.Workers != 8 || cfg.Loading.Timeout != 30*time.Second {
		t.Errorf("unexpected loading: %+v", cfg.Loading)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "scanlab.log" {
		t.Errorf("unexpected logging: %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics enabled")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := map[string]string{
		"bad syntax":  "engine:\n  alignment: [unclosed\n",
		"bad color":   "colors:\n  base: teal\n",
		"unknown key": "engine:\n  speed: 3\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Errorf("empty file should load, got %v", err)
	}
	if cfg.Loading.Workers != 4 {
		t.Error("empty file changed defaults")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/scanlab.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "scanlab.yaml"), []byte("loading:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find scanlab.yaml in current directory")
	}
}

func TestLoad_Priority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "scanlab.yaml")
	content := "loading:\n  workers: 2\nlogging:\n  level: warn\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(Overrides{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Loading.Workers != 2 || cfg.Logging.Level != "warn" {
		t.Errorf("file values not applied: %+v %+v", cfg.Loading, cfg.Logging)
	}

	cfg, err = Load(Overrides{
		ConfigPath: configPath,
		Debug:      true,
		Workers:    6,
		Alignment:  AlignICP,
		Difference: DiffDeviation,
		LogFile:    "out.log",
		Metrics:    true,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Loading.Workers != 6 {
		t.Errorf("expected workers override 6, got %d", cfg.Loading.Workers)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "out.log" {
		t.Errorf("logging overrides not applied: %+v", cfg.Logging)
	}
	if cfg.Engine.Alignment.Strategy != AlignICP || cfg.Engine.Difference.Strategy != DiffDeviation {
		t.Error("strategy overrides not applied")
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics override not applied")
	}
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(Overrides{ConfigPath: "/nonexistent/scanlab.yaml"})
	if err == nil {
		t.Error("expected error for missing explicit config")
	}

	configPath := filepath.Join(t.TempDir(), "scanlab.yaml")
	if err := os.WriteFile(configPath, []byte("loading:\n  workers: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	_, err = Load(Overrides{ConfigPath: configPath, Alignment: "magic"})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown alignment", func(c *Config) { c.Engine.Alignment.Strategy = "guess" }},
		{"unknown difference", func(c *Config) { c.Engine.Difference.Strategy = "rainbow" }},
		{"deviation without bands", func(c *Config) {
			c.Engine.Difference.Strategy = DiffDeviation
			c.Engine.Difference.Bands = nil
		}},
		{"zero workers", func(c *Config) { c.Loading.Workers = 0 }},
		{"negative timeout", func(c *Config) { c.Loading.Timeout = -time.Second }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scanlab.yaml")

	cfg := Default()
	cfg.Loading.Workers = 3
	cfg.Colors.Highlight = colors.Hex(0x123456)

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload saved config: %v", err)
	}
	if loaded.Loading.Workers != 3 {
		t.Errorf("expected workers 3, got %d", loaded.Loading.Workers)
	}
	if loaded.Colors.Highlight.Uint32() != 0x123456 {
		t.Errorf("expected highlight #123456, got %s", loaded.Colors.Highlight)
	}
}

func TestSave(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())

	if err := Default().Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ConfigDir(), "config.yaml")); err != nil {
		t.Errorf("saved config not found: %v", err)
	}
}
