package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpsertResult describes what UpsertFile did with a scanned file.
type UpsertResult int

const (
	// Unchanged means the stored row already matched the file on disk.
	Unchanged UpsertResult = iota
	// Added means a new row was inserted.
	Added
	// Updated means the content changed; stored analyses were discarded.
	Updated
)

func (r UpsertResult) String() string {
	switch r {
	case Added:
		return "added"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// UpsertFile records a scanned file keyed by directory and file name. A change
// in hash or size resets probe-derived columns and drops stored analyses.
func (s *Store) UpsertFile(ctx context.Context, file MediaFile) (int64, UpsertResult, error) {
	if strings.TrimSpace(file.FileName) == "" {
		return 0, Unchanged, errors.New("upsert file: file name is required")
	}
	if strings.TrimSpace(file.FileHash) == "" {
		return 0, Unchanged, errors.New("upsert file: file hash is required")
	}
	if file.GroupName == "" {
		file.GroupName = "#"
	}
	now := formatTime(time.Now())

	var (
		id     int64
		result UpsertResult
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			existingHash string
			existingSize int64
		)
		row := tx.QueryRowContext(ctx,
			`SELECT id, file_hash, size_bytes FROM media_files WHERE directory = ? AND file_name = ?`,
			file.Directory, file.FileName,
		)
		switch err := row.Scan(&id, &existingHash, &existingSize); {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `INSERT INTO media_files (
                file_name, directory, extension, file_hash, last_modified, cover_art_id,
                size_bytes, mime_type, group_name, created_at, updated_at, seen_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				file.FileName, file.Directory, file.Extension, file.FileHash,
				formatTime(file.LastModified), nullableInt64(file.CoverArtID),
				file.SizeBytes, nullableString(file.MimeType), file.GroupName, now, now, now,
			)
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			result = Added
			return err
		case err != nil:
			return err
		}

		if existingHash == file.FileHash && existingSize == file.SizeBytes {
			result = Unchanged
			_, err := tx.ExecContext(ctx, `UPDATE media_files
                SET cover_art_id = COALESCE(?, cover_art_id), group_name = ?, seen_at = ?
                WHERE id = ?`,
				nullableInt64(file.CoverArtID), file.GroupName, now, id,
			)
			return err
		}

		result = Updated
		if _, err := tx.ExecContext(ctx, `UPDATE media_files SET
                extension = ?, file_hash = ?, last_modified = ?, cover_art_id = ?,
                size_bytes = ?, mime_type = ?, group_name = ?, sample_rate = 0, duration = 0,
                updated_at = ?, seen_at = ?
            WHERE id = ?`,
			file.Extension, file.FileHash, formatTime(file.LastModified), nullableInt64(file.CoverArtID),
			file.SizeBytes, nullableString(file.MimeType), file.GroupName, now, now, id,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM media_analysis WHERE file_id = ?`, id)
		return err
	})
	if err != nil {
		return 0, Unchanged, fmt.Errorf("upsert file %s: %w", file.RelativePath(), err)
	}
	return id, result, nil
}

// DeleteMissing removes files below directory (all files when empty) that no
// scan has seen since the cutoff, then drops albums left without files.
func (s *Store) DeleteMissing(ctx context.Context, directory string, seenBefore time.Time) (int64, error) {
	query := `DELETE FROM media_files WHERE seen_at < ?`
	args := []any{formatTime(seenBefore)}
	if directory = strings.Trim(directory, "/"); directory != "" {
		query += ` AND (directory = ? OR directory LIKE ? ESCAPE '\')`
		args = append(args, directory, escapeLike(directory)+"/%")
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete missing files: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete missing files: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`DELETE FROM albums WHERE NOT EXISTS (SELECT 1 FROM album_files af WHERE af.album_id = albums.id)`,
	); err != nil {
		return removed, fmt.Errorf("delete empty albums: %w", err)
	}
	return removed, nil
}

// EnsureAlbum returns the id of the album with name and artist, creating it
// when missing.
func (s *Store) EnsureAlbum(ctx context.Context, name, artist, groupName string) (int64, error) {
	if groupName == "" {
		groupName = "#"
	}
	var id int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		return s.db.QueryRowContext(ctx, `INSERT INTO albums (name, artist, group_name) VALUES (?, ?, ?)
            ON CONFLICT (name, artist) DO UPDATE SET group_name = excluded.group_name
            RETURNING id`, name, artist, groupName,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("ensure album %q: %w", name, err)
	}
	return id, nil
}

// LinkAlbumFile relates a media file to an album. Existing links are kept.
func (s *Store) LinkAlbumFile(ctx context.Context, albumID, fileID int64) error {
	if _, err := s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO album_files (album_id, media_file_id) VALUES (?, ?)`, albumID, fileID,
	); err != nil {
		return fmt.Errorf("link album %d to file %d: %w", albumID, fileID, err)
	}
	return nil
}

// EnsureCoverArt returns the id of the artwork at art.FilePath, creating or
// refreshing the row.
func (s *Store) EnsureCoverArt(ctx context.Context, art CoverArt) (int64, error) {
	if strings.TrimSpace(art.FilePath) == "" {
		return 0, errors.New("ensure cover art: file path is required")
	}
	var id int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		return s.db.QueryRowContext(ctx, `INSERT INTO media_cover_art (file_path, mime_type, file_hash) VALUES (?, ?, ?)
            ON CONFLICT (file_path) DO UPDATE SET mime_type = excluded.mime_type, file_hash = excluded.file_hash
            RETURNING id`, art.FilePath, nullableString(art.MimeType), nullableString(art.FileHash),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("ensure cover art %s: %w", art.FilePath, err)
	}
	return id, nil
}
