package analysis

import (
	"fmt"
	"slices"
	"time"

	"mediascan/internal/config"
	"mediascan/internal/library"
	"mediascan/internal/pipeline"
)

// Registered kinds.
const (
	KindProbe       = "probe"
	KindFingerprint = "fingerprint"
	KindLoudness    = "loudness"
)

// Analyzer is the pipeline analyzer shape every kind implements.
type Analyzer = pipeline.Analyzer[library.MediaFile, library.Finding]

// Kinds returns the registered kinds in a stable order.
func Kinds() []string {
	return []string{KindProbe, KindFingerprint, KindLoudness}
}

// New builds the analyzer for kind from configuration.
func New(kind string, cfg *config.Config) (Analyzer, error) {
	switch kind {
	case KindProbe:
		return NewProbe(cfg.Analysis.FFprobeBinary), nil
	case KindFingerprint:
		return NewFingerprint(0), nil
	case KindLoudness:
		return NewLoudness(LoudnessOptions{
			FFmpegBinary: cfg.Analysis.FFmpegBinary,
			SampleRate:   cfg.Analysis.LoudnessSampleRate,
			Window:       time.Duration(cfg.Analysis.LoudnessWindowMillis) * time.Millisecond,
		}), nil
	}
	return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownKind, kind, Kinds())
}

// IsKnown reports whether kind is registered.
func IsKnown(kind string) bool {
	return slices.Contains(Kinds(), kind)
}
