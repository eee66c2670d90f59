package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mediascan/internal/config"
	"mediascan/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddFile catalogues a file at relPath (below the library root) without
// touching the filesystem and returns the stored row.
func AddFile(t testing.TB, store *library.Store, relPath string) library.MediaFile {
	t.Helper()

	dir, name := filepath.Split(relPath)
	file := library.MediaFile{
		FileName:     name,
		Directory:    filepath.Clean(dir),
		Extension:    extension(name),
		FileHash:     "hash-" + relPath,
		LastModified: time.Unix(1_700_000_000, 0),
		SizeBytes:    1024,
		GroupName:    "#",
	}
	if file.Directory == "." {
		file.Directory = ""
	}
	id, _, err := store.UpsertFile(context.Background(), file)
	if err != nil {
		t.Fatalf("store.UpsertFile: %v", err)
	}
	stored, err := store.MediaFiles().FindByID(context.Background(), id)
	if err != nil || stored == nil {
		t.Fatalf("store.MediaFiles().FindByID(%d): %v", id, err)
	}
	return *stored
}

func extension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return ext[1:]
}
