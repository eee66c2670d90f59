package scanner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediascan/internal/library"
	"mediascan/internal/logging"
	"mediascan/internal/scanner"
	"mediascan/internal/testsupport"
)

func buildLibrary(t *testing.T, root string) {
	t.Helper()
	testsupport.WriteWAV(t, filepath.Join(root, "Joni", "Blue", "01 - River.wav"))
	testsupport.WriteWAV(t, filepath.Join(root, "Joni", "Blue", "02 - Carey.wav"))
	testsupport.WriteFile(t, filepath.Join(root, "Joni", "Blue", "cover.jpg"), []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"))
	testsupport.WriteFLAC(t, filepath.Join(root, "Joni", "Court", "Help Me.flac"))
	testsupport.WriteFile(t, filepath.Join(root, "Joni", "Court", "notes.txt"), []byte("liner notes"))
	testsupport.WriteFile(t, filepath.Join(root, "Joni", "Court", "fake.mp3"), []byte("this is not audio at all"))
	testsupport.WriteWAV(t, filepath.Join(root, ".trash", "deleted.wav"))
}

func TestScanImportsLibrary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	buildLibrary(t, cfg.Paths.LibraryDir)
	ctx := context.Background()

	s := scanner.New(store, scanner.OptionsFromConfig(cfg, logging.NewNop()))
	report, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.Added != 3 || report.Seen != 3 || report.Errors != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Skipped != 2 {
		t.Fatalf("expected notes.txt and fake.mp3 skipped, got %d", report.Skipped)
	}
	if report.Albums != 2 || report.Covers != 1 {
		t.Fatalf("unexpected album/cover counts %+v", report)
	}

	files, err := store.MediaFiles().FirstN(ctx, 10)
	if err != nil {
		t.Fatalf("FirstN: %v", err)
	}
	byName := make(map[string]library.MediaFile, len(files))
	for _, f := range files {
		byName[f.FileName] = f
	}
	river, ok := byName["01 - River.wav"]
	if !ok {
		t.Fatalf("River not catalogued: %+v", files)
	}
	if river.Directory != "Joni/Blue" || river.Extension != "wav" || river.GroupName != "R" {
		t.Fatalf("unexpected River row %+v", river)
	}
	if !river.HasCoverArt() {
		t.Fatal("expected River to reference the album cover")
	}
	help := byName["Help Me.flac"]
	if help.HasCoverArt() || help.CoverArtID == nil || *help.CoverArtID != library.NoCoverArtID {
		t.Fatalf("expected Court files to carry the no-cover marker, got %+v", help.CoverArtID)
	}
	if help.MimeType != "audio/flac" {
		t.Fatalf("unexpected mime type %q", help.MimeType)
	}
	if _, ok := byName["deleted.wav"]; ok {
		t.Fatal("hidden directory must be excluded")
	}

	groups, err := store.AlbumGroups(ctx, []string{"B", "C"})
	if err != nil {
		t.Fatalf("AlbumGroups: %v", err)
	}
	if len(groups[0].Albums) != 1 || groups[0].Albums[0].Album.Artist != "Joni" || len(groups[0].Albums[0].CoverIDs) != 1 {
		t.Fatalf("unexpected B group %+v", groups[0])
	}
	if len(groups[1].Albums) != 1 || len(groups[1].Albums[0].CoverIDs) != 0 {
		t.Fatalf("unexpected C group %+v", groups[1])
	}
}

func TestRescanDetectsChangesAndRemovals(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	root := cfg.Paths.LibraryDir
	buildLibrary(t, root)
	ctx := context.Background()
	s := scanner.New(store, scanner.OptionsFromConfig(cfg, nil))

	if _, err := s.Scan(ctx); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	report, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if report.Unchanged != 3 || report.Added != 0 || report.Removed != 0 {
		t.Fatalf("unexpected idle rescan %+v", report)
	}

	testsupport.WriteFile(t, filepath.Join(root, "Joni", "Court", "Help Me.flac"), append([]byte("fLaC"), make([]byte, 200)...))
	if err := os.Remove(filepath.Join(root, "Joni", "Blue", "02 - Carey.wav")); err != nil {
		t.Fatal(err)
	}
	report, err = s.Scan(ctx)
	if err != nil {
		t.Fatalf("third scan: %v", err)
	}
	if report.Updated != 1 || report.Unchanged != 1 || report.Removed != 1 {
		t.Fatalf("unexpected rescan %+v", report)
	}
	count, err := store.Files().Count(ctx)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 catalogued files, got %d (%v)", count, err)
	}
}

func TestScanHonoursCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	buildLibrary(t, cfg.Paths.LibraryDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scanner.New(store, scanner.OptionsFromConfig(cfg, nil)).Scan(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScanRejectsInvalidPatterns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	opts := scanner.OptionsFromConfig(cfg, nil)
	opts.Include = []string{"[unterminated"}
	if _, err := scanner.New(store, opts).Scan(context.Background()); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func TestTitleFromName(t *testing.T) {
	cases := map[string]string{
		"01 - River.flac":  "River",
		"3.Blue.mp3":       "Blue",
		"07_Help Me.ogg":   "Help Me",
		"1999.mp3":         "1999",
		"1999Remix.mp3":    "1999Remix",
		"Case of You.wav":  "Case of You",
		"  padded .m4a":    "padded",
		"12 (Live).flac":   "(Live)",
	}
	for name, want := range cases {
		if got := scanner.TitleFromName(name); got != want {
			t.Fatalf("TitleFromName(%q) = %q, want %q", name, got, want)
		}
	}
}
