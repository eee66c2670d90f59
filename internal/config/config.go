package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the library root and the directory holding the catalogue.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	DataDir    string `toml:"data_dir"`
}

// Analysis contains configuration for the re-analysis pipeline.
type Analysis struct {
	// BatchSize is both the page size used against the catalogue and the
	// capacity of the in-flight record queue.
	BatchSize int `toml:"batch_size"`
	// Concurrency caps simultaneously running analysis workers. Zero ties it
	// to BatchSize.
	Concurrency int `toml:"concurrency"`
	// WorkerTimeoutSeconds bounds a single file's analysis. Zero disables it.
	WorkerTimeoutSeconds int      `toml:"worker_timeout_seconds"`
	Kinds                []string `toml:"kinds"`
	// Nice is the scheduling niceness applied to the process during analyze.
	Nice                 int    `toml:"nice"`
	FFprobeBinary        string `toml:"ffprobe_binary"`
	FFmpegBinary         string `toml:"ffmpeg_binary"`
	LoudnessWindowMillis int    `toml:"loudness_window_millis"`
	LoudnessSampleRate   int    `toml:"loudness_sample_rate"`
}

// Scan contains configuration for walking the library root.
type Scan struct {
	Include        []string `toml:"include"`
	Exclude        []string `toml:"exclude"`
	FollowSymlinks bool     `toml:"follow_symlinks"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for exporting pipeline metrics.
type Metrics struct {
	// TextfilePath receives Prometheus text exposition after each analyze run.
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for mediascan.
//
// Configuration sections by subsystem:
//   - Paths: library root and data directory
//   - Analysis: pipeline batch size, concurrency, timeouts, analyzers
//   - Scan: include/exclude globs for catalogue imports
//   - Logging: log format and level
//   - Metrics: Prometheus textfile export
type Config struct {
	Paths    Paths    `toml:"paths"`
	Analysis Analysis `toml:"analysis"`
	Scan     Scan     `toml:"scan"`
	Logging  Logging  `toml:"logging"`
	Metrics  Metrics  `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mediascan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediascan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data directory. The library root is never
// created; a missing root is reported by preflight checks instead.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.DataDir, err)
	}
	return nil
}

// DatabasePath returns the catalogue database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "library.db")
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.DataDir, "mediascan.log")
}

// LockPath returns the lock file guarding concurrent analyze runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "analyze.lock")
}

// EffectiveConcurrency returns the worker cap, falling back to the batch size.
func (c *Config) EffectiveConcurrency() int {
	if c.Analysis.Concurrency > 0 {
		return c.Analysis.Concurrency
	}
	return c.Analysis.BatchSize
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
