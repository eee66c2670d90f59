package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeScan()
	c.normalizeLogging()
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("MEDIASCAN_LIBRARY_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.LibraryDir = strings.TrimSpace(value)
	}
	var err error
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		c.Paths.LibraryDir = defaultLibraryDir
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	if c.Analysis.BatchSize == 0 {
		c.Analysis.BatchSize = defaultBatchSize
	}
	if c.Analysis.Concurrency < 0 {
		c.Analysis.Concurrency = 0
	}
	if c.Analysis.WorkerTimeoutSeconds < 0 {
		c.Analysis.WorkerTimeoutSeconds = 0
	}
	c.Analysis.Kinds = normalizeList(c.Analysis.Kinds, true)
	if len(c.Analysis.Kinds) == 0 {
		c.Analysis.Kinds = append([]string(nil), defaultAnalysisKinds...)
	}
	c.Analysis.FFprobeBinary = strings.TrimSpace(c.Analysis.FFprobeBinary)
	if c.Analysis.FFprobeBinary == "" {
		c.Analysis.FFprobeBinary = defaultFFprobeBinary
	}
	c.Analysis.FFmpegBinary = strings.TrimSpace(c.Analysis.FFmpegBinary)
	if c.Analysis.FFmpegBinary == "" {
		c.Analysis.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Analysis.LoudnessWindowMillis <= 0 {
		c.Analysis.LoudnessWindowMillis = defaultLoudnessWindowMillis
	}
	if c.Analysis.LoudnessSampleRate <= 0 {
		c.Analysis.LoudnessSampleRate = defaultLoudnessSampleRate
	}
}

func (c *Config) normalizeScan() {
	c.Scan.Include = normalizeList(c.Scan.Include, false)
	if len(c.Scan.Include) == 0 {
		c.Scan.Include = append([]string(nil), defaultScanInclude...)
	}
	c.Scan.Exclude = normalizeList(c.Scan.Exclude, false)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() error {
	path := strings.TrimSpace(c.Metrics.TextfilePath)
	if path == "" {
		c.Metrics.TextfilePath = ""
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	c.Metrics.TextfilePath = expanded
	return nil
}

func normalizeList(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if lower {
			value = strings.ToLower(value)
		}
		if value == "" || slices.Contains(out, value) {
			continue
		}
		out = append(out, value)
	}
	return out
}
