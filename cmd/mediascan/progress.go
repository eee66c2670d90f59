package main

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"mediascan/internal/logging"
)

// progressDisplay renders pipeline progress either as a terminal bar or as
// sampled log lines.
type progressDisplay struct {
	mu      sync.Mutex
	kind    string
	bar     *progressbar.ProgressBar
	out     io.Writer
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

func newProgressDisplay(out io.Writer, kind, mode string, logger *slog.Logger) *progressDisplay {
	d := &progressDisplay{kind: kind, out: out, logger: logger}
	switch mode {
	case "none":
	case "bar":
		d.bar = newBar(out, kind)
	case "log":
		d.sampler = logging.NewProgressSampler(10, 30*time.Second)
	default:
		if isTerminal(out) {
			d.bar = newBar(out, kind)
		} else {
			d.sampler = logging.NewProgressSampler(10, 30*time.Second)
		}
	}
	return d
}

func newBar(out io.Writer, kind string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(kind),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetPredictTime(true),
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// update is the pipeline progress callback. The pipeline serializes calls;
// the mutex guards finish racing a late update.
func (d *progressDisplay) update(completed, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.bar != nil:
		if d.bar.GetMax() != total {
			d.bar.ChangeMax(total)
		}
		_ = d.bar.Set(completed)
	case d.sampler != nil:
		if d.sampler.ShouldLog(completed, total) {
			d.logger.Info("analysis progress",
				logging.Int("completed", completed),
				logging.Int("total", total),
				logging.Float64("percent", logging.Percent(completed, total)),
			)
		}
	}
}

func (d *progressDisplay) finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar != nil {
		_ = d.bar.Finish()
		_, _ = io.WriteString(d.out, "\n")
	}
}
