// Package deps checks the external binaries analysis kinds shell out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mediascan/internal/config"
)

// Requirement defines an external binary an analysis kind relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured kinds need. Binaries for
// kinds that are not enabled are reported as optional.
func Requirements(cfg *config.Config) []Requirement {
	enabled := make(map[string]bool, len(cfg.Analysis.Kinds))
	for _, kind := range cfg.Analysis.Kinds {
		enabled[kind] = true
	}
	return []Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.Analysis.FFprobeBinary,
			Description: "Reads duration, sample rate, and codec for the probe kind",
			Optional:    !enabled["probe"],
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Analysis.FFmpegBinary,
			Description: "Decodes PCM for the loudness kind",
			Optional:    !enabled["loudness"],
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
