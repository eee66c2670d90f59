package library

import (
	"errors"

	"mediascan/internal/pipeline"
)

// ErrorClassifier lets analysis errors declare the kind stored next to the
// failure message. Known kinds are "missing_file", "unsupported", "tool", and
// "decode"; status output groups failures by kind.
type ErrorClassifier interface {
	ErrorKind() string
}

// ErrUnknownColumn is returned when a grouped count names a column the
// repository does not allow grouping by.
var ErrUnknownColumn = errors.New("unknown group column")

// ErrorKind classifies a failed outcome for storage.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		if kind := classifier.ErrorKind(); kind != "" {
			return kind
		}
	}
	switch {
	case errors.Is(err, pipeline.ErrAnalysisTimeout):
		return "timeout"
	case errors.Is(err, pipeline.ErrAnalysisPanic):
		return "panic"
	}
	return "analysis"
}
