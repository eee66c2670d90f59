package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"

	"mediascan/internal/config"
	"mediascan/internal/fileutil"
	"mediascan/internal/library"
	"mediascan/internal/logging"
	"mediascan/internal/textutil"
)

// Options configures a scan.
type Options struct {
	Root           string
	Include        []string
	Exclude        []string
	FollowSymlinks bool
	// Prune removes catalogued files the scan did not see. Only complete
	// scans prune.
	Prune  bool
	Logger *slog.Logger
}

// OptionsFromConfig builds scan options from configuration.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Root:           cfg.Paths.LibraryDir,
		Include:        cfg.Scan.Include,
		Exclude:        cfg.Scan.Exclude,
		FollowSymlinks: cfg.Scan.FollowSymlinks,
		Prune:          true,
		Logger:         logger,
	}
}

// Report summarises one scan.
type Report struct {
	Seen      int
	Added     int
	Updated   int
	Unchanged int
	// Skipped counts files rejected by globs or content sniffing.
	Skipped int
	Removed int64
	Errors  int
	Albums  int
	Covers  int
	Elapsed time.Duration
}

// Scanner imports a library tree into a store.
type Scanner struct {
	store  *library.Store
	opts   Options
	logger *slog.Logger
}

// New returns a scanner writing to store.
func New(store *library.Store, opts Options) *Scanner {
	return &Scanner{
		store:  store,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "scanner"),
	}
}

type walkResult struct {
	mu     sync.Mutex
	files  []string
	covers map[string]string
	// skipped counts files filtered out during the walk.
	skipped int
}

// Scan walks the library root and updates the catalogue.
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	started := time.Now()
	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return Report{}, fmt.Errorf("resolve library root: %w", err)
	}
	if err := validatePatterns(s.opts.Include, s.opts.Exclude); err != nil {
		return Report{}, err
	}

	s.logger.Info("library scan starting", logging.String("root", root))
	walked, err := s.walk(ctx, root)
	if err != nil {
		return Report{}, err
	}
	slices.Sort(walked.files)

	report := Report{Skipped: walked.skipped}
	albums := make(map[string]int64)
	covers := make(map[string]int64)

	for _, rel := range walked.files {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(started)
			return report, err
		}
		report.Seen++
		result, err := s.importFile(ctx, root, rel, walked.covers, albums, covers)
		if errors.Is(err, errNotAudio) {
			report.Seen--
			report.Skipped++
			continue
		}
		if err != nil {
			report.Errors++
			logging.WarnWithContext(s.logger, "importing file failed", "scan_file_error",
				logging.String("path", rel),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file left out of the catalogue"),
			)
			continue
		}
		switch result {
		case library.Added:
			report.Added++
		case library.Updated:
			report.Updated++
		default:
			report.Unchanged++
		}
	}
	report.Albums = len(albums)
	for _, id := range covers {
		if id != library.NoCoverArtID {
			report.Covers++
		}
	}

	if s.opts.Prune && report.Errors == 0 {
		removed, err := s.store.DeleteMissing(ctx, "", started)
		if err != nil {
			report.Elapsed = time.Since(started)
			return report, err
		}
		report.Removed = removed
	}

	report.Elapsed = time.Since(started)
	s.logger.Info("library scan finished",
		logging.Int("seen", report.Seen),
		logging.Int("added", report.Added),
		logging.Int("updated", report.Updated),
		logging.Int("skipped", report.Skipped),
		logging.Int64("removed", report.Removed),
		logging.Int("errors", report.Errors),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// walk collects candidate files and cover images. fastwalk calls the walk
// function from several goroutines.
func (s *Scanner) walk(ctx context.Context, root string) (*walkResult, error) {
	result := &walkResult{covers: make(map[string]string)}
	conf := fastwalk.Config{Follow: s.opts.FollowSymlinks}

	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			s.logger.Debug("walk error", logging.String("path", path), logging.Error(err))
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			// A directory is pruned when a file directly inside it would be excluded.
			if matchAny(s.opts.Exclude, rel+"/\x00") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		dir := pathDir(rel)
		if isCoverName(d.Name()) {
			result.mu.Lock()
			if existing, ok := result.covers[dir]; !ok || coverRank(d.Name()) < coverRank(pathBase(existing)) {
				result.covers[dir] = rel
			}
			result.mu.Unlock()
			return nil
		}

		keep := matchAny(s.opts.Include, rel) && !matchAny(s.opts.Exclude, rel)
		result.mu.Lock()
		if keep {
			result.files = append(result.files, rel)
		} else {
			result.skipped++
		}
		result.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk library: %w", err)
	}
	return result, nil
}

var errNotAudio = errors.New("content is not audio")

func (s *Scanner) importFile(ctx context.Context, root, rel string, coverPaths map[string]string, albums, covers map[string]int64) (library.UpsertResult, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	info, err := statFile(abs)
	if err != nil {
		return library.Unchanged, err
	}
	mtype, err := mimetype.DetectFile(abs)
	if err != nil {
		return library.Unchanged, fmt.Errorf("detect content type: %w", err)
	}
	if !isAudio(mtype, rel) {
		s.logger.Debug("skipping non-audio file", logging.String("path", rel), logging.String("mime_type", mtype.String()))
		return library.Unchanged, errNotAudio
	}
	hash, err := fileutil.QuickHash(abs)
	if err != nil {
		return library.Unchanged, fmt.Errorf("hash: %w", err)
	}

	dir := pathDir(rel)
	coverID, err := s.coverFor(ctx, root, dir, coverPaths, covers)
	if err != nil {
		return library.Unchanged, err
	}

	name := pathBase(rel)
	file := library.MediaFile{
		FileName:     name,
		Directory:    dir,
		Extension:    strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		FileHash:     hash,
		LastModified: info.ModTime(),
		CoverArtID:   &coverID,
		SizeBytes:    info.Size(),
		MimeType:     mtype.String(),
		GroupName:    textutil.GroupName(TitleFromName(name)),
	}
	id, result, err := s.store.UpsertFile(ctx, file)
	if err != nil {
		return library.Unchanged, err
	}

	if dir != "" {
		albumID, ok := albums[dir]
		if !ok {
			albumName, artist := albumFromDir(dir)
			albumID, err = s.store.EnsureAlbum(ctx, albumName, artist, textutil.GroupName(albumName))
			if err != nil {
				return result, err
			}
			albums[dir] = albumID
		}
		if err := s.store.LinkAlbumFile(ctx, albumID, id); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Scanner) coverFor(ctx context.Context, root, dir string, coverPaths map[string]string, covers map[string]int64) (int64, error) {
	if id, ok := covers[dir]; ok {
		return id, nil
	}
	rel, ok := coverPaths[dir]
	if !ok {
		covers[dir] = library.NoCoverArtID
		return library.NoCoverArtID, nil
	}
	abs := filepath.Join(root, filepath.FromSlash(rel))
	art := library.CoverArt{FilePath: rel}
	if mtype, err := mimetype.DetectFile(abs); err == nil {
		art.MimeType = mtype.String()
	}
	if hash, err := fileutil.QuickHash(abs); err == nil {
		art.FileHash = hash
	}
	id, err := s.store.EnsureCoverArt(ctx, art)
	if err != nil {
		return 0, err
	}
	covers[dir] = id
	return id, nil
}

func validatePatterns(groups ...[]string) error {
	for _, patterns := range groups {
		for _, pattern := range patterns {
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid glob pattern %q", pattern)
			}
		}
	}
	return nil
}

// matchAny reports whether rel (slash separated) matches any pattern. Matching
// ignores case so "*.mp3" also accepts "TRACK.MP3".
func matchAny(patterns []string, rel string) bool {
	lowered := strings.ToLower(rel)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(strings.ToLower(pattern), lowered); ok {
			return true
		}
	}
	return false
}
