// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties (codec, sample rate, channels)
//   - Format: container-level metadata (duration, size, bitrate, tags)
//
// Inspect executes ffprobe and returns the parsed Result; Parse decodes a
// report captured elsewhere. PrimaryAudio picks the stream the probe analyzer
// reports on.
package ffprobe
