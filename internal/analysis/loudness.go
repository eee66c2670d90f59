package analysis

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"mediascan/internal/library"
	"mediascan/internal/pipeline"
)

// SilenceFloorDB is the level reported for windows with no signal.
const SilenceFloorDB = -120.0

// LoudnessOptions configures the loudness kind.
type LoudnessOptions struct {
	FFmpegBinary string
	// SampleRate is the rate ffmpeg resamples to before analysis.
	SampleRate int
	// Window is the length of one envelope point.
	Window time.Duration
}

// LoudnessSummary holds the statistics derived from an envelope.
type LoudnessSummary struct {
	MeanDB   float64 `json:"mean_db"`
	StdDevDB float64 `json:"stddev_db"`
	P10DB    float64 `json:"p10_db"`
	MedianDB float64 `json:"median_db"`
	P95DB    float64 `json:"p95_db"`
	PeakDB   float64 `json:"peak_db"`
	// RangeDB is the spread between the 95th and 10th percentile windows.
	RangeDB float64 `json:"range_db"`
}

// LoudnessPayload is the stored result of the loudness kind.
type LoudnessPayload struct {
	SampleRate   int       `json:"sample_rate"`
	WindowMillis int64     `json:"window_millis"`
	Samples      int64     `json:"samples"`
	Envelope     []float64 `json:"envelope"`
	LoudnessSummary
}

// pcmOpener starts a decoder and returns a reader of mono little-endian f32 PCM.
type pcmOpener func(ctx context.Context, path string) (io.ReadCloser, error)

// Loudness decodes audio through ffmpeg and summarises its RMS envelope.
type Loudness struct {
	opts LoudnessOptions
	open pcmOpener
}

var _ Analyzer = (*Loudness)(nil)

// NewLoudness returns a loudness analyzer.
func NewLoudness(opts LoudnessOptions) *Loudness {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 22050
	}
	if opts.Window <= 0 {
		opts.Window = 500 * time.Millisecond
	}
	if strings.TrimSpace(opts.FFmpegBinary) == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	l := &Loudness{opts: opts}
	l.open = l.ffmpegPCM
	return l
}

// windowSamples is the number of samples in one envelope point.
func (l *Loudness) windowSamples() int {
	n := int(int64(l.opts.SampleRate) * l.opts.Window.Milliseconds() / 1000)
	return max(n, 1)
}

// Analyze implements pipeline.Analyzer. Cancellation is checked once per window.
func (l *Loudness) Analyze(ctx context.Context, file library.MediaFile, root string, cancel pipeline.Observer) (library.Finding, error) {
	path := file.AbsolutePath(root)
	if err := checkFile("loudness", path); err != nil {
		return library.Finding{}, err
	}

	decodeCtx, stop := context.WithCancel(ctx)
	defer stop()

	pcm, err := l.open(decodeCtx, path)
	if err != nil {
		return library.Finding{}, newError(KindTool, "loudness", path, "start decoder", err)
	}

	var cancelled func() bool
	if cancel != nil {
		cancelled = cancel.Cancelled
	}
	envelope, samples, envErr := Envelope(pcm, l.windowSamples(), cancelled)
	if envErr != nil {
		stop()
	}
	closeErr := pcm.Close()

	switch {
	case errors.Is(envErr, pipeline.ErrInterrupted):
		return library.Finding{}, envErr
	case ctx.Err() != nil:
		return library.Finding{}, ctx.Err()
	case envErr != nil:
		return library.Finding{}, newError(KindDecode, "loudness", path, "", envErr)
	case closeErr != nil:
		return library.Finding{}, newError(KindDecode, "loudness", path, "decoder failed", closeErr)
	case samples == 0:
		return library.Finding{}, newError(KindDecode, "loudness", path, "no audio decoded", nil)
	}

	return library.Finding{
		Kind: KindLoudness,
		Payload: LoudnessPayload{
			SampleRate:      l.opts.SampleRate,
			WindowMillis:    l.opts.Window.Milliseconds(),
			Samples:         samples,
			Envelope:        envelope,
			LoudnessSummary: Summarize(envelope),
		},
	}, nil
}

// Envelope reads mono little-endian float32 PCM from r and returns the RMS
// level in dBFS of each window of n samples, plus the samples consumed. A
// trailing partial window is included. cancelled is polled before each window.
func Envelope(r io.Reader, n int, cancelled func() bool) ([]float64, int64, error) {
	if n <= 0 {
		return nil, 0, fmt.Errorf("envelope window must be positive, got %d", n)
	}
	reader := bufio.NewReaderSize(r, 64*1024)
	buf := make([]byte, n*4)
	var (
		envelope []float64
		total    int64
	)
	for {
		if cancelled != nil && cancelled() {
			return nil, total, pipeline.ErrInterrupted
		}
		read, err := io.ReadFull(reader, buf)
		frames := read / 4
		if frames > 0 {
			var sumSquares float64
			for i := 0; i < frames; i++ {
				s := float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
				sumSquares += s * s
			}
			envelope = append(envelope, toDB(math.Sqrt(sumSquares/float64(frames))))
			total += int64(frames)
		}
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return envelope, total, nil
		case err != nil:
			return nil, total, err
		}
	}
}

func toDB(rms float64) float64 {
	if rms <= 0 {
		return SilenceFloorDB
	}
	return math.Max(20*math.Log10(rms), SilenceFloorDB)
}

// Summarize derives loudness statistics from an envelope in dBFS.
func Summarize(envelope []float64) LoudnessSummary {
	if len(envelope) == 0 {
		return LoudnessSummary{
			MeanDB: SilenceFloorDB, P10DB: SilenceFloorDB, MedianDB: SilenceFloorDB,
			P95DB: SilenceFloorDB, PeakDB: SilenceFloorDB,
		}
	}
	sorted := slices.Clone(envelope)
	slices.Sort(sorted)

	summary := LoudnessSummary{
		MeanDB:   stat.Mean(envelope, nil),
		P10DB:    stat.Quantile(0.10, stat.Empirical, sorted, nil),
		MedianDB: stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95DB:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		PeakDB:   floats.Max(envelope),
	}
	if len(envelope) > 1 {
		summary.StdDevDB = stat.StdDev(envelope, nil)
	}
	summary.RangeDB = summary.P95DB - summary.P10DB
	return summary
}

// ffmpegPCM decodes path to mono f32le on stdout. Close waits for ffmpeg and
// reports its failure, including stderr.
func (l *Loudness) ffmpegPCM(ctx context.Context, path string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, l.opts.FFmpegBinary,
		"-v", "error", "-nostdin", "-hide_banner",
		"-i", path,
		"-vn", "-ac", "1", "-ar", strconv.Itoa(l.opts.SampleRate),
		"-f", "f32le", "-",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &commandReader{ReadCloser: stdout, cmd: cmd, stderr: &stderr}, nil
}

type commandReader struct {
	io.ReadCloser
	cmd    *exec.Cmd
	stderr *strings.Builder
}

func (c *commandReader) Close() error {
	// Drain so ffmpeg is not blocked writing when it exits on its own.
	_, _ = io.Copy(io.Discard, c.ReadCloser)
	if err := c.cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(c.stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
