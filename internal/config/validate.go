package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxBatchSize bounds the page size and in-flight queue capacity.
const MaxBatchSize = 1024

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.BatchSize < 1 || c.Analysis.BatchSize > MaxBatchSize {
		return fmt.Errorf("analysis.batch_size must be between 1 and %d", MaxBatchSize)
	}
	if c.Analysis.Concurrency > MaxBatchSize {
		return fmt.Errorf("analysis.concurrency must not exceed %d", MaxBatchSize)
	}
	if c.Analysis.Nice < 0 || c.Analysis.Nice > 19 {
		return errors.New("analysis.nice must be between 0 and 19")
	}
	for _, kind := range c.Analysis.Kinds {
		if !IsAnalysisKind(kind) {
			return fmt.Errorf("analysis.kinds: unsupported kind %q", kind)
		}
	}
	return nil
}

func (c *Config) validateScan() error {
	for _, pattern := range append(append([]string{}, c.Scan.Include...), c.Scan.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("scan: invalid glob %q", pattern)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

// AnalysisKinds lists the analyzers the CLI can schedule.
var AnalysisKinds = []string{"probe", "fingerprint", "loudness"}

// IsAnalysisKind reports whether kind names a known analyzer.
func IsAnalysisKind(kind string) bool {
	for _, known := range AnalysisKinds {
		if kind == known {
			return true
		}
	}
	return false
}
