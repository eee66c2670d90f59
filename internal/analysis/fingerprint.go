package analysis

import (
	"context"
	"errors"

	"mediascan/internal/fileutil"
	"mediascan/internal/library"
	"mediascan/internal/pipeline"
)

// FingerprintPayload is the stored result of the fingerprint kind.
type FingerprintPayload struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
	Bytes     int64  `json:"bytes"`
}

// Fingerprint hashes the full file content.
type Fingerprint struct {
	chunk int
}

var _ Analyzer = (*Fingerprint)(nil)

// NewFingerprint returns a fingerprint analyzer reading chunk bytes at a time.
// A non-positive chunk uses fileutil.DefaultChunkSize.
func NewFingerprint(chunk int) *Fingerprint {
	return &Fingerprint{chunk: chunk}
}

// Analyze implements pipeline.Analyzer. Cancellation is checked between chunks.
func (f *Fingerprint) Analyze(ctx context.Context, file library.MediaFile, root string, cancel pipeline.Observer) (library.Finding, error) {
	path := file.AbsolutePath(root)
	if err := checkFile("fingerprint", path); err != nil {
		return library.Finding{}, err
	}

	var cancelled func() bool
	if cancel != nil {
		cancelled = cancel.Cancelled
	}
	sum, n, err := fileutil.StreamHash(ctx, path, f.chunk, cancelled)
	switch {
	case errors.Is(err, fileutil.ErrCancelled):
		return library.Finding{}, pipeline.ErrInterrupted
	case ctx.Err() != nil:
		return library.Finding{}, ctx.Err()
	case err != nil:
		return library.Finding{}, newError(KindDecode, "fingerprint", path, "", err)
	}

	return library.Finding{
		Kind: KindFingerprint,
		Payload: FingerprintPayload{
			Algorithm: "xxhash64",
			Digest:    fileutil.FormatDigest(sum),
			Bytes:     n,
		},
	}, nil
}
