// Package analysis implements the per-file analysis kinds the pipeline runs.
//
// Every kind satisfies pipeline.Analyzer over library.MediaFile and produces a
// library.Finding whose payload is stored as JSON:
//
//   - probe: ffprobe container and stream metadata; also refreshes the
//     catalogue's duration and sample rate columns
//   - fingerprint: xxhash64 over the full file content
//   - loudness: an RMS envelope of decoded mono PCM plus summary statistics;
//     the envelope doubles as a comparable embedding
//
// Failures are returned as *Error values carrying a kind ("missing_file",
// "unsupported", "tool", "decode") that the catalogue records next to the
// message.
package analysis
