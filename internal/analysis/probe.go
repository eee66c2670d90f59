package analysis

import (
	"context"
	"errors"
	"math"

	"mediascan/internal/library"
	"mediascan/internal/media/ffprobe"
	"mediascan/internal/pipeline"
)

// ProbePayload is the stored result of the probe kind.
type ProbePayload struct {
	Format        string            `json:"format"`
	Codec         string            `json:"codec"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout,omitempty"`
	SampleRate    int               `json:"sample_rate"`
	BitsPerSample int               `json:"bits_per_sample,omitempty"`
	BitRate       int64             `json:"bit_rate,omitempty"`
	Duration      float64           `json:"duration"`
	AudioStreams  int               `json:"audio_streams"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// inspectFunc matches ffprobe.Inspect.
type inspectFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Probe reads container metadata with ffprobe.
type Probe struct {
	binary  string
	inspect inspectFunc
}

var _ Analyzer = (*Probe)(nil)

// NewProbe returns a probe analyzer running binary.
func NewProbe(binary string) *Probe {
	return &Probe{binary: binary, inspect: ffprobe.Inspect}
}

var probeTags = []string{"artist", "album_artist", "album", "title", "track", "date", "genre"}

// Analyze implements pipeline.Analyzer.
func (p *Probe) Analyze(ctx context.Context, file library.MediaFile, root string, cancel pipeline.Observer) (library.Finding, error) {
	path := file.AbsolutePath(root)
	if cancel != nil && cancel.Cancelled() {
		return library.Finding{}, pipeline.ErrInterrupted
	}
	if err := checkFile("probe", path); err != nil {
		return library.Finding{}, err
	}

	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return library.Finding{}, ctxErr
		}
		return library.Finding{}, newError(KindTool, "probe", path, "", err)
	}
	return probeFinding(result, path)
}

func probeFinding(result ffprobe.Result, path string) (library.Finding, error) {
	audio, err := result.PrimaryAudio()
	if errors.Is(err, ffprobe.ErrNoAudioStream) {
		return library.Finding{}, newError(KindUnsupported, "probe", path, "no audio stream", nil)
	}

	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration < 0 {
		return library.Finding{}, newError(KindDecode, "probe", path, "malformed duration", nil)
	}

	payload := ProbePayload{
		Format:        result.Format.FormatName,
		Codec:         audio.CodecName,
		Channels:      audio.Channels,
		ChannelLayout: audio.ChannelLayout,
		SampleRate:    audio.SampleRateHz(),
		BitsPerSample: audio.BitsPerSample,
		BitRate:       result.BitRate(),
		Duration:      duration,
		AudioStreams:  result.AudioStreamCount(),
	}
	for _, name := range probeTags {
		if value := result.Tag(name); value != "" {
			if payload.Tags == nil {
				payload.Tags = make(map[string]string)
			}
			payload.Tags[name] = value
		}
	}

	return library.Finding{
		Kind:       KindProbe,
		Payload:    payload,
		Duration:   duration,
		SampleRate: payload.SampleRate,
	}, nil
}
