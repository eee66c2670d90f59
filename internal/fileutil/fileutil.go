// Package fileutil hashes library files.
package fileutil

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// QuickHashWindow is the number of bytes QuickHash reads from each end of a file.
const QuickHashWindow = 64 * 1024

// DefaultChunkSize is the read size StreamHash uses when chunk is not positive.
const DefaultChunkSize = 256 * 1024

// ErrCancelled is returned by StreamHash when the cancel callback fires.
var ErrCancelled = errors.New("hash cancelled")

// QuickHash identifies file content cheaply: xxhash64 over the size and the
// first and last QuickHashWindow bytes. It detects edits and truncation but is
// not a content fingerprint.
func QuickHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()

	digest := xxhash.New()
	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(size))
	_, _ = digest.Write(sizeBuf[:])

	if _, err := io.CopyN(digest, f, min(size, QuickHashWindow)); err != nil {
		return "", fmt.Errorf("read head of %s: %w", path, err)
	}
	if size > 2*QuickHashWindow {
		if _, err := f.Seek(-QuickHashWindow, io.SeekEnd); err != nil {
			return "", fmt.Errorf("seek tail of %s: %w", path, err)
		}
		if _, err := io.CopyN(digest, f, QuickHashWindow); err != nil {
			return "", fmt.Errorf("read tail of %s: %w", path, err)
		}
	} else if size > QuickHashWindow {
		if _, err := io.Copy(digest, f); err != nil {
			return "", fmt.Errorf("read tail of %s: %w", path, err)
		}
	}
	return FormatDigest(digest.Sum64()), nil
}

// StreamHash computes xxhash64 over the whole file in chunks. cancelled is
// polled between chunks; a true result aborts with ErrCancelled.
func StreamHash(ctx context.Context, path string, chunk int, cancelled func() bool) (uint64, int64, error) {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	digest := xxhash.New()
	buf := make([]byte, chunk)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return 0, total, err
		}
		if cancelled != nil && cancelled() {
			return 0, total, ErrCancelled
		}
		n, readErr := f.Read(buf)
		if n > 0 {
			_, _ = digest.Write(buf[:n])
			total += int64(n)
		}
		if errors.Is(readErr, io.EOF) {
			return digest.Sum64(), total, nil
		}
		if readErr != nil {
			return 0, total, fmt.Errorf("read %s: %w", path, readErr)
		}
	}
}

// FormatDigest renders a 64-bit digest as 16 lowercase hex characters.
func FormatDigest(sum uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	return hex.EncodeToString(buf[:])
}
